package origin

import "testing"

func TestParseHostPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		wantHost string
		wantPort int
		wantSet  bool
	}{
		{"example.org:8443", "example.org", 8443, true},
		{"[::1]:9000", "[::1]", 9000, true},
		{"example.org", "example.org", 0, false},
		{"a:b:c", "a:b:c", 0, false},
		{"::1", "::1", 0, false},
		{"[::1]", "[::1]", 0, false},
		{"[::1]9000", "[::1]", 0, false},
		{"[::1", "[::1", 0, false},
		{"[fe80::1%25eth0]:443", "[fe80::1%25eth0]", 443, true},
		{"example.org:http", "example.org", 0, false},
		{"example.org:0", "example.org", 0, false},
		{"example.org:-1", "example.org", 0, false},
		{"example.org:", "example.org", 0, false},
		{":8080", "", 8080, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			host, port := ParseHostPort(tt.in)
			if host != tt.wantHost {
				t.Errorf("ParseHostPort(%q) host = %q, want %q", tt.in, host, tt.wantHost)
			}
			n, ok := port.Get()
			if ok != tt.wantSet || n != tt.wantPort {
				t.Errorf("ParseHostPort(%q) port = (%d, %v), want (%d, %v)", tt.in, n, ok, tt.wantPort, tt.wantSet)
			}
		})
	}
}

func TestPortOf(t *testing.T) {
	t.Parallel()

	if PortOf(0).IsSet() {
		t.Error("PortOf(0) should be absent")
	}
	if PortOf(-443).IsSet() {
		t.Error("PortOf(-443) should be absent")
	}
	if n, ok := PortOf(8080).Get(); !ok || n != 8080 {
		t.Errorf("PortOf(8080) = (%d, %v), want (8080, true)", n, ok)
	}
	if NoPort.String() != "" {
		t.Errorf("NoPort.String() = %q, want empty", NoPort.String())
	}
}

func TestParsePort(t *testing.T) {
	t.Parallel()

	tests := map[string]Port{
		"7000":   PortOf(7000),
		" 7000 ": PortOf(7000),
		"0":      NoPort,
		"-5":     NoPort,
		"abc":    NoPort,
		"":       NoPort,
		"70.5":   NoPort,
	}
	for in, want := range tests {
		if got := ParsePort(in); got != want {
			t.Errorf("ParsePort(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPort_Or(t *testing.T) {
	t.Parallel()

	if got := NoPort.Or(PortOf(80)); got != PortOf(80) {
		t.Errorf("NoPort.Or(80) = %v, want 80", got)
	}
	if got := PortOf(9000).Or(PortOf(80)); got != PortOf(9000) {
		t.Errorf("9000.Or(80) = %v, want 9000", got)
	}
}
