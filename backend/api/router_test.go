package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"isolate/backend/domain"
	"isolate/backend/repository/memory"
	"isolate/backend/service/proxies"
	subscriptionsvc "isolate/backend/service/subscription"
)

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore(nil)
	proxyRepo := memory.NewProxyRepo(store)
	subRepo := memory.NewSubscriptionRepo(store)
	settingsRepo := memory.NewSettingsRepo(store)

	proxySvc := proxies.NewService(proxyRepo)
	subSvc := subscriptionsvc.NewService(subRepo, proxyRepo)
	return NewRouter(proxySvc, subSvc, settingsRepo, store), store
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRouterParseShareLink(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/proxies/parse", gin.H{
		"link": "vless://11111111-2222-3333-4444-555555555555@example.com:443?security=tls&sni=cdn.example.com#MyServer",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var res struct {
		Config   domain.ProxyConfig `json:"config"`
		Warnings []struct {
			Field string `json:"field"`
		} `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if res.Config.Server != "example.com" || res.Config.Port != 443 || res.Config.Name != "MyServer" {
		t.Fatalf("unexpected parsed config: %+v", res.Config)
	}
	if !res.Config.TLS || res.Config.SNI != "cdn.example.com" {
		t.Fatalf("expected tls/sni parsed, got %+v", res.Config)
	}
}

func TestRouterParseShareLink_ErrorStatusMapping(t *testing.T) {
	engine, _ := newTestRouter(t)

	cases := []struct {
		name string
		link string
		want int
	}{
		{"unsupported scheme", "wireguard://example.com", http.StatusBadRequest},
		{"missing port", "vless://uuid@example.com?security=tls", http.StatusBadRequest},
		{"bad port", "vless://uuid@example.com:notaport", http.StatusBadRequest},
		{"bad vmess base64", "vmess://!!!!", http.StatusBadRequest},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, engine, http.MethodPost, "/proxies/parse", gin.H{"link": tc.link})
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestRouterImportShareLinkAndExport(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/proxies/import", gin.H{
		"link": "trojan://secret@host.example.com:443?sni=sni.example.com#T1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created domain.ProxyConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if created.ID == "" || created.Protocol != domain.ProtocolTrojan {
		t.Fatalf("unexpected created proxy: %+v", created)
	}

	rec = doJSON(t, engine, http.MethodGet, "/proxies/"+created.ID+"/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var exported struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &exported); err != nil {
		t.Fatalf("unmarshal export response: %v", err)
	}
	if exported.Link == "" {
		t.Fatalf("expected non-empty share link")
	}
}

func TestRouterCreateProxy_ValidationErrors(t *testing.T) {
	engine, _ := newTestRouter(t)

	// 缺必填字段，binding 拒绝
	rec := doJSON(t, engine, http.MethodPost, "/proxies", gin.H{"name": "incomplete"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	// 协议必填字段缺失，落库校验拒绝
	rec = doJSON(t, engine, http.MethodPost, "/proxies", gin.H{
		"protocol": "vless", "server": "example.com", "port": 443,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestRouterProxyNotFound(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/proxies/missing/activate", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, engine, http.MethodGet, "/subscriptions/missing/proxies", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRouterPreviewSubscriptionPayload(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/subscriptions/preview", gin.H{
		"payload": "# comment\nvless://11111111-2222-3333-4444-555555555555@a.example.com:443#A\nnot a link\n",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Entries []struct {
			Config   domain.ProxyConfig `json:"config"`
			Selected bool               `json:"selected"`
		} `json:"entries"`
		Failures []struct {
			Line string `json:"line"`
		} `json:"failures"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(result.Entries) != 1 || !result.Entries[0].Selected {
		t.Fatalf("expected 1 pre-selected entry, got %+v", result.Entries)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 failure for the junk line, got %d", len(result.Failures))
	}
}

func TestRouterImportSubscriptionInlinePayload(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/subscriptions/import", gin.H{
		"name":    "inline",
		"payload": "trojan://secret@a.example.com:443#A\n",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var sub domain.Subscription
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	rec = doJSON(t, engine, http.MethodGet, "/subscriptions/"+sub.ID+"/proxies", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var listed struct {
		Proxies []domain.ProxyConfig `json:"proxies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(listed.Proxies) != 1 {
		t.Fatalf("expected 1 imported proxy, got %d", len(listed.Proxies))
	}

	// 缺 sourceUrl 和 payload 时拒绝
	rec = doJSON(t, engine, http.MethodPost, "/subscriptions/import", gin.H{"name": "empty"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// failingSubscriptionRepo 所有操作都返回固定错误，用于覆盖错误状态码映射
type failingSubscriptionRepo struct {
	err error
}

func (r *failingSubscriptionRepo) Get(context.Context, string) (domain.Subscription, error) {
	return domain.Subscription{}, r.err
}

func (r *failingSubscriptionRepo) List(context.Context) ([]domain.Subscription, error) {
	return nil, r.err
}

func (r *failingSubscriptionRepo) Create(context.Context, domain.Subscription) (domain.Subscription, error) {
	return domain.Subscription{}, r.err
}

func (r *failingSubscriptionRepo) Update(context.Context, string, domain.Subscription) (domain.Subscription, error) {
	return domain.Subscription{}, r.err
}

func (r *failingSubscriptionRepo) Delete(context.Context, string) error { return r.err }

func (r *failingSubscriptionRepo) UpdateSyncStatus(context.Context, string, string, string, error) error {
	return r.err
}

func TestRouterImportSubscription_RepoFailureIsNotBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := memory.NewStore(nil)
	proxyRepo := memory.NewProxyRepo(store)
	subSvc := subscriptionsvc.NewService(&failingSubscriptionRepo{err: errors.New("disk full")}, proxyRepo)
	engine := NewRouter(proxies.NewService(proxyRepo), subSvc, memory.NewSettingsRepo(store), store)

	rec := doJSON(t, engine, http.MethodPost, "/subscriptions/import", gin.H{
		"name":    "inline",
		"payload": "trojan://secret@a.example.com:443#A\n",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500, body = %s", rec.Code, rec.Body.String())
	}
}

func TestRouterFrontendSettingsRoundTrip(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPut, "/settings/frontend", gin.H{"theme": "dark"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodGet, "/settings/frontend", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var settings map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if settings["theme"] != "dark" {
		t.Fatalf("expected theme persisted, got %+v", settings)
	}
}
