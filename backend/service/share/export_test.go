package share

import (
	"strings"
	"testing"

	"isolate/backend/domain"
)

func TestBuildShareLink_RoundTrips(t *testing.T) {
	t.Parallel()

	configs := []domain.ProxyConfig{
		{
			Name:     "vl",
			Protocol: domain.ProtocolVLESS,
			Server:   "example.com",
			Port:     443,
			UUID:     "uuid-1",
			TLS:      true,
			SNI:      "cdn.example.com",
		},
		{
			Name:     "vm",
			Protocol: domain.ProtocolVMess,
			Server:   "example.com",
			Port:     8443,
			UUID:     "uuid-2",
			TLS:      true,
			SNI:      "example.com",
		},
		{
			Name:     "ss",
			Protocol: domain.ProtocolShadowsocks,
			Server:   "example.com",
			Port:     8388,
			Password: "secret",
			Method:   "aes-256-gcm",
		},
		{
			Name:     "tr",
			Protocol: domain.ProtocolTrojan,
			Server:   "example.com",
			Port:     443,
			Password: "p@ss:word",
			TLS:      true,
			SNI:      "foo.com",
		},
		{
			Name:     "sk",
			Protocol: domain.ProtocolSOCKS5,
			Server:   "example.com",
			Port:     1080,
			Username: "user",
			Password: "pass",
		},
		{
			Name:     "ht",
			Protocol: domain.ProtocolHTTP,
			Server:   "example.com",
			Port:     8080,
		},
		{
			Name:     "hs",
			Protocol: domain.ProtocolHTTPS,
			Server:   "example.com",
			Port:     443,
			TLS:      true,
		},
	}

	for _, cfg := range configs {
		cfg := cfg
		t.Run(string(cfg.Protocol), func(t *testing.T) {
			t.Parallel()

			link, err := BuildShareLink(cfg)
			if err != nil {
				t.Fatalf("build share link: %v", err)
			}
			res, err := Parse(link)
			if err != nil {
				t.Fatalf("re-parse %q: %v", link, err)
			}
			if res.Config != cfg {
				t.Fatalf("round trip mismatch:\n  exported %q\n  want %+v\n  got  %+v", link, cfg, res.Config)
			}
		})
	}
}

func TestBuildShareLink_VMessPayloadIsBase64JSON(t *testing.T) {
	t.Parallel()

	link, err := BuildShareLink(domain.ProxyConfig{
		Name:     "vm",
		Protocol: domain.ProtocolVMess,
		Server:   "example.com",
		Port:     443,
		UUID:     "uuid-1",
	})
	if err != nil {
		t.Fatalf("build share link: %v", err)
	}
	if !strings.HasPrefix(link, "vmess://") {
		t.Fatalf("expected vmess scheme, got %q", link)
	}
	if strings.ContainsAny(strings.TrimPrefix(link, "vmess://"), "{}@:") {
		t.Fatalf("expected opaque base64 payload, got %q", link)
	}
}

func TestBuildShareLink_MissingCredentials(t *testing.T) {
	t.Parallel()

	_, err := BuildShareLink(domain.ProxyConfig{
		Protocol: domain.ProtocolTrojan,
		Server:   "example.com",
		Port:     443,
	})
	if err == nil {
		t.Fatal("expected error for trojan export without password")
	}

	_, err = BuildShareLink(domain.ProxyConfig{
		Protocol: domain.ProtocolVLESS,
		Server:   "example.com",
		Port:     443,
	})
	if err == nil {
		t.Fatal("expected error for vless export without uuid")
	}
}

func TestBuildShareLink_UnknownProtocol(t *testing.T) {
	t.Parallel()

	_, err := BuildShareLink(domain.ProxyConfig{Protocol: "wireguard"})
	if err == nil {
		t.Fatal("expected error for unknown protocol")
	}
}
