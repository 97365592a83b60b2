package diskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// requestUploadLink asks the store for a pre-authenticated upload href
// for path, overwriting any existing content there.
func (c *Client) requestUploadLink(ctx context.Context, path string) (href, method string, err error) {
	q := url.Values{"path": {diskPath(path)}, "overwrite": {"true"}}

	resp, err := c.do(ctx, http.MethodGet, "/resources/upload?"+q.Encode(), nil, retryOpts{})
	if err != nil {
		return "", "", fmt.Errorf("requesting upload link: %w", err)
	}
	defer resp.Body.Close()

	var link linkResponse
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return "", "", fmt.Errorf("decoding upload link: %w", err)
	}

	if link.Method == "" {
		link.Method = http.MethodPut
	}

	return link.Href, link.Method, nil
}

// putToLink writes body to a pre-authenticated upload href obtained from
// requestUploadLink. This is a distinct, unauthenticated request: the
// href itself carries the authorization, so no bearer token or
// Authorization header is attached here, and the href is never logged.
func (c *Client) putToLink(ctx context.Context, href, method string, body io.ReadSeeker, size int64, contentType string) error {
	var attempt int

	for {
		if _, err := body.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewinding upload body: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, method, href, body)
		if err != nil {
			return fmt.Errorf("creating upload request: %w", err)
		}

		req.ContentLength = size

		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries {
				if sleepErr := c.backoffSleep(ctx, attempt, "upload network error retry"); sleepErr != nil {
					return sleepErr
				}

				attempt++

				continue
			}

			return fmt.Errorf("uploading to signed link: %w", err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return nil
		}

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			if sleepErr := c.backoffSleepResp(ctx, resp, attempt, "upload HTTP error retry"); sleepErr != nil {
				return sleepErr
			}

			attempt++

			continue
		}

		return c.terminalError(resp.StatusCode, respBody)
	}
}
