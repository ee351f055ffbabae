package share

import (
	"testing"

	"isolate/backend/domain"
)

func hasWarning(warnings []Warning, field string) bool {
	for _, w := range warnings {
		if w.Field == field {
			return true
		}
	}
	return false
}

func TestValidate_CleanConfigHasNoWarnings(t *testing.T) {
	t.Parallel()

	warnings := Validate(domain.ProxyConfig{
		Protocol: domain.ProtocolVLESS,
		Server:   "example.com",
		Port:     443,
		UUID:     "uuid-1",
	})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", warnings)
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		cfg   domain.ProxyConfig
		field string
	}{
		{"missing server", domain.ProxyConfig{Protocol: domain.ProtocolTrojan, Port: 443, Password: "x"}, "server"},
		{"port out of range", domain.ProxyConfig{Protocol: domain.ProtocolTrojan, Server: "h", Port: 70000, Password: "x"}, "port"},
		{"vless without uuid", domain.ProxyConfig{Protocol: domain.ProtocolVLESS, Server: "h", Port: 443}, "uuid"},
		{"vmess without uuid", domain.ProxyConfig{Protocol: domain.ProtocolVMess, Server: "h", Port: 443}, "uuid"},
		{"trojan without password", domain.ProxyConfig{Protocol: domain.ProtocolTrojan, Server: "h", Port: 443}, "password"},
		{"ss without method", domain.ProxyConfig{Protocol: domain.ProtocolShadowsocks, Server: "h", Port: 8388, Password: "x"}, "method"},
		{"ss without password", domain.ProxyConfig{Protocol: domain.ProtocolShadowsocks, Server: "h", Port: 8388, Method: "aes-256-gcm"}, "password"},
		{"socks username without password", domain.ProxyConfig{Protocol: domain.ProtocolSOCKS5, Server: "h", Port: 1080, Username: "u"}, "password"},
		{"unknown protocol", domain.ProxyConfig{Protocol: "quic", Server: "h", Port: 443}, "protocol"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			warnings := Validate(tc.cfg)
			if !hasWarning(warnings, tc.field) {
				t.Fatalf("expected a %q warning, got %+v", tc.field, warnings)
			}
		})
	}
}

func TestValidate_AnonymousSOCKSIsClean(t *testing.T) {
	t.Parallel()

	warnings := Validate(domain.ProxyConfig{
		Protocol: domain.ProtocolSOCKS5,
		Server:   "example.com",
		Port:     1080,
	})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings for anonymous socks5, got %+v", warnings)
	}
}
