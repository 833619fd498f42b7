package catalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// NewHTTPClient returns the client used for catalog calls. When client
// credentials are configured (e.g. Copernicus Data Space) requests carry an
// OAuth2 bearer token; otherwise a plain client is used. Token requests are
// bounded by the same timeout as catalog requests.
func NewHTTPClient(ctx context.Context, clientID, clientSecret, tokenURL string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("http timeout must be positive, got %s", timeout)
	}
	if clientID == "" && clientSecret == "" {
		return &http.Client{Timeout: timeout}, nil
	}
	if clientID == "" || clientSecret == "" || tokenURL == "" {
		return nil, fmt.Errorf("incomplete catalog credentials: client id, client secret and token url are all required")
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := config.Client(ctx)
	httpClient.Timeout = timeout
	return httpClient, nil
}
