package http

import (
	"net"
	"net/http"

	"github.com/volview-xnat/volviewd/internal/domain/origin"
)

// Reverse proxy headers consulted by the origin resolver.
const (
	headerForwardedProto  = "X-Forwarded-Proto"
	headerForwardedHost   = "X-Forwarded-Host"
	headerForwardedPort   = "X-Forwarded-Port"
	headerForwardedPrefix = "X-Forwarded-Prefix"
)

var forwardedHeaders = []string{headerForwardedProto, headerForwardedHost, headerForwardedPort, headerForwardedPrefix}

// originRequest captures what the server observed about r. The scheme comes
// from the connection and the host and port from the Host header. An
// HTTP/1.0 request without a Host header falls back to the local address
// the connection was accepted on.
func originRequest(r *http.Request, contextPath string) origin.Request {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	if host == "" {
		if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
			host = addr.String()
		}
	}
	serverName, serverPort := origin.ParseHostPort(host)

	return origin.Request{
		Scheme:      scheme,
		ServerName:  serverName,
		ServerPort:  serverPort,
		ContextPath: contextPath,
		Forwarded: origin.Forwarded{
			Proto:  r.Header.Get(headerForwardedProto),
			Host:   r.Header.Get(headerForwardedHost),
			Port:   r.Header.Get(headerForwardedPort),
			Prefix: r.Header.Get(headerForwardedPrefix),
		},
	}
}

// resolveOrigin returns the external origin of r and counts which forwarded
// headers took part.
func (h *handler) resolveOrigin(r *http.Request) origin.Origin {
	req := originRequest(r, h.contextPath)
	if h.metrics != nil && req.Forwarded.Any() {
		for _, name := range forwardedHeaders {
			if origin.FirstValue(r.Header.Get(name)) != "" {
				h.metrics.ForwardedHeaders.WithLabelValues(name).Inc()
			}
		}
	}
	o := origin.Resolve(req)
	LoggerFromContext(r.Context()).Debug("resolved request origin",
		"origin", o.String(),
		"forwarded", req.Forwarded.Any(),
	)
	return o
}
