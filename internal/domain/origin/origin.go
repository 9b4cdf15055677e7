// Package origin reconstructs the externally visible origin of a request that
// may have passed through one or more reverse proxies.
//
// Resolution is a pure function of the request attributes. Malformed or
// missing forwarded headers never fail a request; each one degrades to the
// next fallback, ending with the attributes the server observed directly.
package origin

import (
	"strings"

	"github.com/volview-xnat/volviewd/internal/domain/urlpath"
)

// Forwarded holds the raw reverse-proxy header values of one request.
// Each value may be a comma-separated list; only the first entry is used.
type Forwarded struct {
	Proto  string // X-Forwarded-Proto
	Host   string // X-Forwarded-Host
	Port   string // X-Forwarded-Port
	Prefix string // X-Forwarded-Prefix
}

// Any reports whether at least one forwarded value is present.
func (f Forwarded) Any() bool {
	return FirstValue(f.Proto) != "" || FirstValue(f.Host) != "" ||
		FirstValue(f.Port) != "" || FirstValue(f.Prefix) != ""
}

// Request is what the server observed directly, plus the forwarded headers.
type Request struct {
	Scheme      string
	ServerName  string
	ServerPort  Port
	ContextPath string
	Forwarded   Forwarded
}

// Origin is the scheme, host, port and path prefix an external client uses
// to address the service. PathPrefix is either empty or starts with "/" and
// never ends with "/".
type Origin struct {
	Scheme     string
	Host       string
	Port       Port
	PathPrefix string
}

// FirstValue returns the first comma-separated entry of a header value with
// surrounding whitespace removed.
func FirstValue(raw string) string {
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// Resolve derives the external origin of req.
func Resolve(req Request) Origin {
	return direct(req).
		withProto(req.Forwarded.Proto).
		withHost(req.Forwarded.Host).
		withPort(req.Forwarded.Port).
		withPrefix(req.Forwarded.Prefix, req.ContextPath)
}

// direct is the origin as observed without any proxy headers.
func direct(req Request) Origin {
	return Origin{
		Scheme:     req.Scheme,
		Host:       req.ServerName,
		Port:       req.ServerPort,
		PathPrefix: normalizePrefix(req.ContextPath),
	}
}

func (o Origin) withProto(raw string) Origin {
	if proto := FirstValue(raw); proto != "" {
		o.Scheme = proto
	}
	return o
}

func (o Origin) withHost(raw string) Origin {
	value := FirstValue(raw)
	if value == "" {
		return o
	}
	host, port := ParseHostPort(value)
	if host != "" {
		o.Host = host
	}
	o.Port = port.Or(o.Port)
	return o
}

// withPort runs after withHost so X-Forwarded-Port wins over a port embedded
// in X-Forwarded-Host.
func (o Origin) withPort(raw string) Origin {
	if value := FirstValue(raw); value != "" {
		o.Port = ParsePort(value).Or(o.Port)
	}
	return o
}

func (o Origin) withPrefix(rawPrefix, contextPath string) Origin {
	prefix := FirstValue(rawPrefix)
	if prefix == "" {
		o.PathPrefix = normalizePrefix(contextPath)
		return o
	}
	o.PathPrefix = urlpath.Join(normalizePrefix(prefix), normalizePrefix(contextPath))
	return o
}

// normalizePrefix ensures a leading "/" and strips trailing slashes.
// "", "/" and "//" all normalize to "".
func normalizePrefix(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// DefaultPort reports whether port is the implied port of scheme.
func DefaultPort(scheme string, port int) bool {
	return (strings.EqualFold(scheme, "http") && port == 80) ||
		(strings.EqualFold(scheme, "https") && port == 443)
}

// PortSection is ":<port>", or "" when the port is absent or implied by the
// scheme.
func (o Origin) PortSection() string {
	n, ok := o.Port.Get()
	if !ok || DefaultPort(o.Scheme, n) {
		return ""
	}
	return ":" + o.Port.String()
}

// BaseURL renders scheme://host[:port]pathPrefix.
func (o Origin) BaseURL() string {
	return o.Scheme + "://" + o.Host + o.PortSection() + o.PathPrefix
}

// String implements fmt.Stringer.
func (o Origin) String() string {
	return o.BaseURL()
}
