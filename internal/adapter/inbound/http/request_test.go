package http

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/volview-xnat/volviewd/internal/domain/origin"
)

func TestOriginRequest(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		header     map[string]string
		wantScheme string
		wantHost   string
		wantPort   origin.Port
	}{
		{"plain http", "http://xnat.local:8080/x", nil, "http", "xnat.local", origin.PortOf(8080)},
		{"tls", "https://xnat.example.org/x", nil, "https", "xnat.example.org", origin.NoPort},
		{"ipv6", "http://[::1]:9000/x", nil, "http", "[::1]", origin.PortOf(9000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			got := originRequest(req, "/xnat")
			if got.Scheme != tt.wantScheme {
				t.Errorf("Scheme = %q, want %q", got.Scheme, tt.wantScheme)
			}
			if got.ServerName != tt.wantHost {
				t.Errorf("ServerName = %q, want %q", got.ServerName, tt.wantHost)
			}
			if got.ServerPort != tt.wantPort {
				t.Errorf("ServerPort = %v, want %v", got.ServerPort, tt.wantPort)
			}
			if got.ContextPath != "/xnat" {
				t.Errorf("ContextPath = %q, want /xnat", got.ContextPath)
			}
		})
	}
}

func TestOriginRequest_ForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://backend:8080/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "a.example.org, b.example.org")
	req.Header.Set("X-Forwarded-Port", "8443")
	req.Header.Set("X-Forwarded-Prefix", "/edge")

	got := originRequest(req, "")
	want := origin.Forwarded{Proto: "https", Host: "a.example.org, b.example.org", Port: "8443", Prefix: "/edge"}
	if got.Forwarded != want {
		t.Errorf("Forwarded = %+v, want %+v", got.Forwarded, want)
	}
	if base := origin.Resolve(got).BaseURL(); base != "https://a.example.org:8443/edge" {
		t.Errorf("BaseURL() = %q, want %q", base, "https://a.example.org:8443/edge")
	}
}

func TestOriginRequest_NoHostHeader(t *testing.T) {
	tests := []struct {
		name     string
		local    net.Addr
		wantHost string
		wantPort origin.Port
		wantBase string
	}{
		{"ipv4 listener", &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 8080}, "10.0.0.5", origin.PortOf(8080), "http://10.0.0.5:8080/xnat"},
		{"ipv6 listener", &net.TCPAddr{IP: net.ParseIP("::1"), Port: 80}, "[::1]", origin.PortOf(80), "http://[::1]/xnat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Proto, req.ProtoMajor, req.ProtoMinor = "HTTP/1.0", 1, 0
			req.Host = ""
			req.URL.Host = ""
			req = req.WithContext(context.WithValue(req.Context(), http.LocalAddrContextKey, tt.local))

			got := originRequest(req, "/xnat")
			if got.ServerName != tt.wantHost {
				t.Errorf("ServerName = %q, want %q", got.ServerName, tt.wantHost)
			}
			if got.ServerPort != tt.wantPort {
				t.Errorf("ServerPort = %v, want %v", got.ServerPort, tt.wantPort)
			}
			if base := origin.Resolve(got).BaseURL(); base != tt.wantBase {
				t.Errorf("BaseURL() = %q, want %q", base, tt.wantBase)
			}
		})
	}
}

func TestOriginRequest_NoHostNoListener(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Host = ""
	req.URL.Host = ""

	got := originRequest(req, "")
	if got.ServerName != "" || got.ServerPort != origin.NoPort {
		t.Errorf("ServerName, ServerPort = %q, %v, want empty", got.ServerName, got.ServerPort)
	}
}
