package diskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// requestDownloadLink asks the store for a pre-authenticated download
// href for path.
func (c *Client) requestDownloadLink(ctx context.Context, path string) (string, error) {
	q := url.Values{"path": {diskPath(path)}}

	resp, err := c.do(ctx, http.MethodGet, "/resources/download?"+q.Encode(), nil, retryOpts{})
	if err != nil {
		return "", fmt.Errorf("requesting download link: %w", err)
	}
	defer resp.Body.Close()

	var link linkResponse
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return "", fmt.Errorf("decoding download link: %w", err)
	}

	return link.Href, nil
}

// getFromLink fetches the full body from a pre-authenticated download
// href. As with putToLink, no Authorization header is attached and the
// href itself is never logged — it is a bearer credential in URL form.
func (c *Client) getFromLink(ctx context.Context, href string) ([]byte, error) {
	var attempt int

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
		if err != nil {
			return nil, fmt.Errorf("creating download request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries {
				if sleepErr := c.backoffSleep(ctx, attempt, "download network error retry"); sleepErr != nil {
					return nil, sleepErr
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("downloading from signed link: %w", err)
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			if readErr != nil {
				return nil, fmt.Errorf("reading download body: %w", readErr)
			}

			return data, nil
		}

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			if sleepErr := c.backoffSleepResp(ctx, resp, attempt, "download HTTP error retry"); sleepErr != nil {
				return nil, sleepErr
			}

			attempt++

			continue
		}

		return nil, c.terminalError(resp.StatusCode, data)
	}
}
