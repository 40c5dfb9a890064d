package preflight

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// ClientConfig defines the setup for the preflight HTTP client.
type ClientConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	Transport    http.RoundTripper
}

// NewClient creates an HTTP client with a cookie jar, a redirect limit and
// the given transport. Registrars commonly set a session cookie and redirect
// once before serving the cart page.
func NewClient(cfg ClientConfig) (*http.Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: cfg.Transport,
	}

	if cfg.MaxRedirects >= 0 {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		}
	} else {
		// Don't follow any redirects if max < 0
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("preflight: %w", err)
	}
	c.Jar = jar

	return c, nil
}
