package origin

import (
	"strconv"
	"strings"
)

// Port is an optional TCP port. The zero value is "no port".
// A present port is always greater than zero.
type Port struct {
	n     int
	valid bool
}

// NoPort is the absent port.
var NoPort = Port{}

// PortOf returns a present port for n > 0 and NoPort otherwise.
func PortOf(n int) Port {
	if n <= 0 {
		return NoPort
	}
	return Port{n: n, valid: true}
}

// ParsePort parses a decimal port. Anything that is not a positive integer
// yields NoPort.
func ParsePort(s string) Port {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return NoPort
	}
	return PortOf(n)
}

// Get returns the port number and whether it is present.
func (p Port) Get() (int, bool) {
	return p.n, p.valid
}

// IsSet reports whether the port is present.
func (p Port) IsSet() bool {
	return p.valid
}

// Or returns p when present and fallback otherwise.
func (p Port) Or(fallback Port) Port {
	if p.valid {
		return p
	}
	return fallback
}

// String renders the port number, or "" when absent.
func (p Port) String() string {
	if !p.valid {
		return ""
	}
	return strconv.Itoa(p.n)
}

// ParseHostPort splits a single forwarded host value into host and port.
//
// Bracketed IPv6 literals keep their brackets: "[::1]:9000" yields
// ("[::1]", 9000). Unbracketed values are split only when they contain
// exactly one colon, so "a:b:c" is returned whole with no port.
func ParseHostPort(s string) (string, Port) {
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return s, NoPort
		}
		host := s[:end+1]
		rest := s[end+1:]
		if strings.HasPrefix(rest, ":") {
			return host, ParsePort(rest[1:])
		}
		return host, NoPort
	}

	if strings.Count(s, ":") != 1 {
		return s, NoPort
	}
	i := strings.LastIndexByte(s, ':')
	return s[:i], ParsePort(s[i+1:])
}
