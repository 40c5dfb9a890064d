package probe

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Registrar describes the registrar's domain lookup page: where it lives and
// which DOM nodes announce the verdict.
type Registrar struct {
	// BaseURL is the lookup endpoint, including any fixed query parameters.
	BaseURL string
	// QueryParam carries the candidate domain.
	QueryParam string
	// AvailableSelector matches the node shown when the domain is free.
	AvailableSelector string
	// UnavailableSelector matches the node shown when the domain is taken.
	UnavailableSelector string
}

// DefaultRegistrar is the WHMCS cart lookup the tool was built against.
var DefaultRegistrar = Registrar{
	BaseURL:             "https://arenhost.id/client/cart.php?a=add&domain=register",
	QueryParam:          "query",
	AvailableSelector:   "p.domain-available.domain-checker-available",
	UnavailableSelector: "p.domain-unavailable.domain-checker-unavailable",
}

// Validate checks that the registrar description is usable.
func (r Registrar) Validate() error {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return fmt.Errorf("registrar base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("registrar base url: unsupported scheme %q", u.Scheme)
	}
	if r.QueryParam == "" {
		return fmt.Errorf("registrar query parameter is empty")
	}
	if r.AvailableSelector == "" || r.UnavailableSelector == "" {
		return fmt.Errorf("registrar marker selectors must both be set")
	}
	return nil
}

// LookupURL returns the lookup page URL for candidate. The candidate is
// escaped as a query component and the base URL's other parameters are kept
// in their original order.
func (r Registrar) LookupURL(candidate string) (string, error) {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", fmt.Errorf("registrar base url: %w", err)
	}

	param := url.QueryEscape(r.QueryParam) + "=" + url.QueryEscape(candidate)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String(), nil
}

// shownExpr builds a JS expression that is true when the node matched by
// selector exists and is rendered with display: block.
func shownExpr(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return !!el && window.getComputedStyle(el).display === 'block';
})()`, jsString(selector))
}

// verdictExpr is true once exactly one of the two markers is shown.
func (r Registrar) verdictExpr() string {
	return fmt.Sprintf(`(() => {
	const shown = sel => {
		const el = document.querySelector(sel);
		return !!el && window.getComputedStyle(el).display === 'block';
	};
	return shown(%s) !== shown(%s);
})()`, jsString(r.AvailableSelector), jsString(r.UnavailableSelector))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
