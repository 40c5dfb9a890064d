package preflight

import (
	"bytes"
	"net/http"
	"strings"
)

// Detector reports whether a response looks like a bot-protection challenge
// or block page, and which vendor served it.
type Detector func(status int, header http.Header, body []byte) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// DetectChallenge runs the response through detectors and returns the first
// vendor that matched, or "" if none did.
func DetectChallenge(status int, header http.Header, body []byte, detectors []Detector) string {
	for _, d := range detectors {
		if detected, source := d(status, header, body); detected {
			return source
		}
	}
	return ""
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(status int, header http.Header, body []byte) (bool, string) {
	if status != http.StatusForbidden && status != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header.Get("Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	if bytes.Contains(body, []byte("cf-browser-verification")) ||
		bytes.Contains(body, []byte("cf-turnstile")) ||
		bytes.Contains(body, []byte("Attention Required! | Cloudflare")) ||
		bytes.Contains(body, []byte("Just a moment...")) {
		return true, "Cloudflare"
	}
	return false, ""
}

// detectAkamai looks for Akamai Bot Manager signatures.
func detectAkamai(status int, header http.Header, body []byte) (bool, string) {
	if status != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header.Get("Server")), "akamai") {
		return true, "Akamai"
	}
	// Akamai often returns a generic "Reference #" block page
	if bytes.Contains(body, []byte("Reference #")) && bytes.Contains(body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

// detectDataDome looks for DataDome challenge/block signatures.
func detectDataDome(status int, header http.Header, body []byte) (bool, string) {
	if status != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header.Get("Server")), "datadome") ||
		header.Get("X-DataDome") != "" ||
		header.Get("X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if bytes.Contains(body, []byte("geo.captcha-delivery.com")) {
		return true, "DataDome"
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(status int, header http.Header, body []byte) (bool, string) {
	if status != http.StatusForbidden {
		return false, ""
	}
	if header.Get("X-Px-Captcha") != "" {
		return true, "PerimeterX"
	}
	if bytes.Contains(body, []byte("client.perimeterx.net")) ||
		bytes.Contains(body, []byte("px-captcha")) ||
		bytes.Contains(body, []byte("_pxBlock")) {
		return true, "PerimeterX"
	}
	return false, ""
}
