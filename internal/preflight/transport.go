package preflight

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"

	utls "github.com/refraction-networking/utls"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileGo      Profile = "go" // standard go TLS
)

// TransportConfig configures the round tripper used by Check.
type TransportConfig struct {
	Profile Profile
	// Proxy routes requests through the given proxy. Nil means direct.
	Proxy *url.URL
	// InsecureSkipVerify disables certificate verification.
	InsecureSkipVerify bool
}

// NewTransport returns an http.RoundTripper whose TLS ClientHello matches the
// configured profile. Non-go profiles pin ALPN to http/1.1 because the
// returned transport speaks HTTP/1 only over the uTLS connection.
func NewTransport(cfg TransportConfig) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if cfg.Proxy != nil {
		transport.Proxy = http.ProxyURL(cfg.Proxy)
	}

	var helloID utls.ClientHelloID
	switch cfg.Profile {
	case ProfileGo:
		if cfg.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return transport, nil
	case ProfileChrome, "":
		helloID = utls.HelloChrome_Auto
	case ProfileFirefox:
		helloID = utls.HelloFirefox_Auto
	default:
		return nil, fmt.Errorf("preflight: unknown profile %q", cfg.Profile)
	}

	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr // fallback if no port
		}

		spec, err := utls.UTLSIdToSpec(helloID)
		if err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("preflight: client hello spec: %w", err)
		}
		for _, ext := range spec.Extensions {
			if alpn, ok := ext.(*utls.ALPNExtension); ok {
				alpn.AlpnProtocols = []string{"http/1.1"}
			}
		}

		uConn := utls.UClient(tcpConn, &utls.Config{
			ServerName:         host,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}, utls.HelloCustom)
		if err := uConn.ApplyPreset(&spec); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("preflight: apply client hello: %w", err)
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("preflight: utls handshake failed: %w", err)
		}

		return uConn, nil
	}

	return transport, nil
}
