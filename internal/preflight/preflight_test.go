package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/domscout/internal/probe"
)

const cartPage = `<!DOCTYPE html>
<html><head><title>Shopping Cart - Arenhost</title></head><body>
<div class="domain-checker-result-headline">
<p class="domain-available domain-checker-available" style="display:none">Selamat! domain tersedia</p>
<p class="domain-unavailable domain-checker-unavailable" style="display:none">domain tidak tersedia</p>
</div>
</body></html>`

func testRegistrar(base string) probe.Registrar {
	reg := probe.DefaultRegistrar
	reg.BaseURL = base + "/client/cart.php?a=add&domain=register"
	return reg
}

func TestCheck_MarkersPresent(t *testing.T) {
	var gotQuery, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(cartPage))
	}))
	defer ts.Close()

	report, err := Check(context.Background(), Config{
		Registrar: testRegistrar(ts.URL),
		Candidate: "go.top",
		UserAgent: "domscout-test",
	})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if gotQuery != "go.top" {
		t.Errorf("expected query go.top, got %q", gotQuery)
	}
	if gotUA != "domscout-test" {
		t.Errorf("expected user agent to be sent, got %q", gotUA)
	}
	if !report.OK() {
		t.Errorf("expected OK report, problems: %v", report.Problems())
	}
	if report.Title != "Shopping Cart - Arenhost" {
		t.Errorf("unexpected title %q", report.Title)
	}
	if report.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", report.StatusCode)
	}
}

func TestCheck_MarkersMissing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p class="domain-available">new theme</p></body></html>`))
	}))
	defer ts.Close()

	report, err := Check(context.Background(), Config{Registrar: testRegistrar(ts.URL), Candidate: "go.top"})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if report.OK() {
		t.Fatal("expected report to flag missing markers")
	}
	if len(report.Problems()) != 2 {
		t.Errorf("expected two problems, got %v", report.Problems())
	}
}

func TestCheck_Challenge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<html><head><title>Just a moment...</title></head><body>cf-turnstile</body></html>`))
	}))
	defer ts.Close()

	report, err := Check(context.Background(), Config{Registrar: testRegistrar(ts.URL), Candidate: "go.top"})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if report.Challenge != "Cloudflare" {
		t.Errorf("expected Cloudflare challenge, got %q", report.Challenge)
	}
	if !strings.Contains(strings.Join(report.Problems(), ";"), "Cloudflare challenge served (status 403)") {
		t.Errorf("unexpected problems %v", report.Problems())
	}
}

func TestCheck_FetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	client, err := NewClient(ClientConfig{Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Check(context.Background(), Config{
		Registrar: testRegistrar(ts.URL),
		Candidate: "go.top",
		Client:    client,
	}); err == nil {
		t.Fatal("expected fetch error on timeout")
	}
}

func TestClient_CookiesAndRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.SetCookie(w, &http.Cookie{Name: "WHMCS", Value: "abc"})
			http.Redirect(w, r, "/cart", http.StatusFound)
		case "/cart":
			if c, err := r.Cookie("WHMCS"); err != nil || c.Value != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/loop":
			http.Redirect(w, r, "/loop", http.StatusFound)
		}
	}))
	defer ts.Close()

	client, err := NewClient(ClientConfig{MaxRedirects: 3})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := client.Get(ts.URL + "/start")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected cookie to survive the redirect, got %d", resp.StatusCode)
	}

	if _, err := client.Get(ts.URL + "/loop"); err == nil {
		t.Error("expected redirect limit error")
	}
}

func TestNewTransport_Profiles(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(cartPage))
	}))
	defer ts.Close()

	for _, p := range []Profile{ProfileChrome, ProfileFirefox, ProfileGo} {
		t.Run(string(p), func(t *testing.T) {
			rt, err := NewTransport(TransportConfig{Profile: p, InsecureSkipVerify: true})
			if err != nil {
				t.Fatalf("unexpected error creating transport for %s: %v", p, err)
			}

			client, err := NewClient(ClientConfig{Transport: rt, MaxRedirects: 5})
			if err != nil {
				t.Fatal(err)
			}

			report, err := Check(context.Background(), Config{
				Registrar: testRegistrar(ts.URL),
				Candidate: "link.top",
				Client:    client,
			})
			if err != nil {
				t.Fatalf("request failed for profile %s: %v", p, err)
			}
			if !report.OK() {
				t.Errorf("expected OK report for profile %s: %v", p, report.Problems())
			}
		})
	}
}

func TestNewTransport_UnknownProfile(t *testing.T) {
	_, err := NewTransport(TransportConfig{Profile: "netscape"})
	if err == nil {
		t.Fatal("expected error for unknown profile, got nil")
	}
	if err.Error() != `preflight: unknown profile "netscape"` {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestDetectChallenge(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   string
	}{
		{"plain page", 200, http.Header{"Server": {"nginx"}}, "OK", ""},
		{"cloudflare header", 403, http.Header{"Server": {"cloudflare"}}, "", "Cloudflare"},
		{"cloudflare body", 503, http.Header{}, "<div class=\"cf-turnstile\">", "Cloudflare"},
		{"akamai header", 403, http.Header{"Server": {"AkamaiGHost"}}, "", "Akamai"},
		{"akamai body", 403, http.Header{}, "Access Denied... Reference #18.1", "Akamai"},
		{"datadome header", 403, http.Header{"X-Datadome": {"protected"}}, "", "DataDome"},
		{"datadome body", 403, http.Header{}, "geo.captcha-delivery.com", "DataDome"},
		{"perimeterx body", 403, http.Header{}, "<div id=\"px-captcha\">", "PerimeterX"},
		{"cloudflare server on 200", 200, http.Header{"Server": {"cloudflare"}}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectChallenge(tt.status, tt.header, []byte(tt.body), DefaultDetectors())
			if got != tt.want {
				t.Errorf("DetectChallenge() = %q, want %q", got, tt.want)
			}
		})
	}
}
