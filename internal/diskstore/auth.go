package diskstore

import "golang.org/x/oauth2"

// staticTokenSource adapts a single long-lived access token (read once
// from YANDEX_DISK_TOKEN at process start) to the diskstore.TokenSource
// interface. The store's personal OAuth tokens for this integration do
// not expire on a refreshable schedule, so there is no refresh flow —
// unlike a typical oauth2.TokenSource, this one never changes value.
type staticTokenSource struct {
	token string
}

// NewStaticTokenSource wraps a fixed access token as a TokenSource.
func NewStaticTokenSource(token string) TokenSource {
	return &staticTokenSource{token: token}
}

func (s *staticTokenSource) Token() (string, error) {
	return s.token, nil
}

// oauth2Adapter lets a diskstore.TokenSource be used anywhere an
// x/oauth2 TokenSource is expected, for interop with other oauth2-based
// tooling in the process (e.g. a shared HTTP transport).
type oauth2Adapter struct {
	inner TokenSource
}

// AsOAuth2 adapts a TokenSource to the oauth2.TokenSource interface.
func AsOAuth2(ts TokenSource) oauth2.TokenSource {
	return &oauth2Adapter{inner: ts}
}

func (a *oauth2Adapter) Token() (*oauth2.Token, error) {
	tok, err := a.inner.Token()
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{AccessToken: tok, TokenType: "OAuth"}, nil
}
