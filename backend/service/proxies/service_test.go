package proxies

import (
	"context"
	"errors"
	"testing"

	"isolate/backend/domain"
	"isolate/backend/repository"
	"isolate/backend/repository/memory"
	"isolate/backend/service/share"
)

func newTestService() *Service {
	store := memory.NewStore(nil)
	return NewService(memory.NewProxyRepo(store))
}

func TestServiceCreate_RejectsIncompleteConfig(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		cfg  domain.ProxyConfig
	}{
		{"unknown protocol", domain.ProxyConfig{Protocol: "wireguard", Server: "example.com", Port: 443}},
		{"vless without uuid", domain.ProxyConfig{Protocol: domain.ProtocolVLESS, Server: "example.com", Port: 443}},
		{"trojan without password", domain.ProxyConfig{Protocol: domain.ProtocolTrojan, Server: "example.com", Port: 443}},
		{"ss without method", domain.ProxyConfig{Protocol: domain.ProtocolShadowsocks, Server: "example.com", Port: 8388, Password: "p"}},
		{"port out of range", domain.ProxyConfig{Protocol: domain.ProtocolSOCKS5, Server: "example.com", Port: 70000}},
		{"empty server", domain.ProxyConfig{Protocol: domain.ProtocolHTTP, Port: 8080}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.Create(ctx, tc.cfg); !errors.Is(err, repository.ErrInvalidData) {
				t.Fatalf("Create() = %v, want ErrInvalidData", err)
			}
		})
	}
}

func TestServiceCreate_DefaultsNameToServer(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	created, err := svc.Create(context.Background(), domain.ProxyConfig{
		Protocol: domain.ProtocolVLESS, Server: "example.com", Port: 443, UUID: "u-1",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.Name != "example.com" {
		t.Fatalf("expected name defaulted to server, got %q", created.Name)
	}
}

func TestServiceImportLink_RoundTripWithExport(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	ctx := context.Background()
	link := "vless://11111111-2222-3333-4444-555555555555@example.com:443?security=tls&sni=cdn.example.com#MyServer"

	created, err := svc.ImportLink(ctx, link)
	if err != nil {
		t.Fatalf("ImportLink() error: %v", err)
	}
	if created.Protocol != domain.ProtocolVLESS || created.Name != "MyServer" {
		t.Fatalf("unexpected imported config: %+v", created)
	}

	exported, err := svc.ExportLink(ctx, created.ID)
	if err != nil {
		t.Fatalf("ExportLink() error: %v", err)
	}
	res, err := share.Parse(exported)
	if err != nil {
		t.Fatalf("Parse(exported) error: %v", err)
	}
	if res.Config.Server != created.Server || res.Config.UUID != created.UUID || res.Config.Port != created.Port {
		t.Fatalf("exported link does not round trip: %+v vs %+v", res.Config, created)
	}
}

func TestServiceImportLink_RejectsIncompleteLink(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	// trojan 链接缺密码，解析产生警告，落库边界必须拒绝
	if _, err := svc.ImportLink(context.Background(), "trojan://@example.com:443#NoPass"); !errors.Is(err, repository.ErrInvalidData) {
		t.Fatalf("ImportLink() = %v, want ErrInvalidData", err)
	}
}

func TestServiceImportLink_PropagatesParseErrors(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	if _, err := svc.ImportLink(context.Background(), "wireguard://example.com"); !errors.Is(err, share.ErrUnsupportedScheme) {
		t.Fatalf("ImportLink() = %v, want ErrUnsupportedScheme", err)
	}
	if _, err := svc.ImportLink(context.Background(), "   "); !errors.Is(err, repository.ErrInvalidData) {
		t.Fatalf("ImportLink(blank) = %v, want ErrInvalidData", err)
	}
}

func TestServicePreview_ReturnsWarningsWithoutPersisting(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	res, err := svc.Preview("trojan://@example.com:443#NoPass")
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected warnings for missing password")
	}
	proxies, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(proxies) != 0 {
		t.Fatalf("expected Preview not to persist, got %d records", len(proxies))
	}
}
