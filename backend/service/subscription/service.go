package subscription

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"isolate/backend/domain"
	"isolate/backend/repository"
	"isolate/backend/service/share"
	"isolate/backend/service/shared"
)

// 常量定义
const (
	// subscriptionUserAgent 订阅服务专用 User-Agent
	// 使用 Clash 风格的 UA 以确保被大多数订阅服务接受
	subscriptionUserAgent = "ClashForAndroid/2.5.12"
)

// 错误定义
var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSyncFailed           = errors.New("sync failed")
)

// Service 订阅服务
type Service struct {
	repo      repository.SubscriptionRepository
	proxyRepo repository.ProxyRepository
}

type subscriptionParseError struct {
	subscriptionID string
	message        string
}

func (e *subscriptionParseError) Error() string {
	if e == nil {
		return "subscription parse failed"
	}
	if strings.TrimSpace(e.subscriptionID) == "" {
		return e.message
	}
	return "subscription " + e.subscriptionID + ": " + e.message
}

func (e *subscriptionParseError) Unwrap() error {
	return repository.ErrInvalidData
}

// NewService 创建订阅服务
func NewService(repo repository.SubscriptionRepository, proxyRepo repository.ProxyRepository) *Service {
	return &Service{
		repo:      repo,
		proxyRepo: proxyRepo,
	}
}

// ========== CRUD 操作 ==========

// List 列出所有订阅
func (s *Service) List(ctx context.Context) ([]domain.Subscription, error) {
	return s.repo.List(ctx)
}

// Get 获取订阅
func (s *Service) Get(ctx context.Context, id string) (domain.Subscription, error) {
	return s.repo.Get(ctx, id)
}

// Create 创建订阅
func (s *Service) Create(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	if strings.TrimSpace(sub.SourceURL) == "" && strings.TrimSpace(sub.Payload) == "" {
		return domain.Subscription{}, errors.New("subscription requires a source url or an inline payload")
	}
	if sub.AutoUpdateInterval < 0 {
		sub.AutoUpdateInterval = 0
	}

	// 如果有 SourceURL，先拉取一次
	if sub.SourceURL != "" {
		payload, checksum, err := s.download(ctx, sub.SourceURL)
		if err != nil {
			sub.LastSyncError = err.Error()
		} else {
			sub.Payload = payload
			sub.Checksum = checksum
			sub.LastSyncedAt = time.Now()
		}
	}
	if strings.TrimSpace(sub.Name) == "" {
		sub.Name = sub.SourceURL
	}

	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		return domain.Subscription{}, err
	}

	// 解析并同步代理记录（为避免破坏用户数据，解析失败时不清空旧记录）。
	if err := s.syncProxiesFromPayload(ctx, created.ID, created.Payload); err != nil {
		// 创建订阅时不应因为解析失败就直接失败：记录错误即可。
		if updateErr := s.repo.UpdateSyncStatus(ctx, created.ID, created.Payload, created.Checksum, err); updateErr != nil {
			log.Printf("[SubscriptionCreate] failed to update sync status for %s after parse error: %v", created.ID, updateErr)
		}
	}

	return s.repo.Get(ctx, created.ID)
}

// Update 更新订阅
func (s *Service) Update(ctx context.Context, id string, sub domain.Subscription) (domain.Subscription, error) {
	return s.repo.Update(ctx, id, sub)
}

// Delete 删除订阅（级联删除其代理记录）
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Proxies 列出订阅名下的代理记录
func (s *Service) Proxies(ctx context.Context, id string) ([]domain.ProxyConfig, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.proxyRepo.ListBySubscriptionID(ctx, id)
}

// ========== 预览 ==========

// PreviewURL 拉取 URL 并解析为候选记录，不落库。
// 候选记录带稳定 ID 与字段警告，供前端确认界面勾选。
func (s *Service) PreviewURL(ctx context.Context, sourceURL string) (share.ImportResult, error) {
	payload, _, err := s.download(ctx, sourceURL)
	if err != nil {
		return share.ImportResult{}, err
	}
	return s.PreviewPayload(payload), nil
}

// PreviewPayload 解析订阅正文为候选记录，不落库
func (s *Service) PreviewPayload(payload string) share.ImportResult {
	result := share.ImportPayload(payload)
	result.Entries = share.FilterInfoEntries(result.Entries)
	for i := range result.Entries {
		if result.Entries[i].Config.ID == "" {
			result.Entries[i].Config.ID = domain.StableProxyID("", result.Entries[i].Config)
		}
	}
	return result
}

// ========== 同步操作 ==========

// Sync 同步订阅
func (s *Service) Sync(ctx context.Context, id string) error {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if sub.SourceURL == "" {
		return nil // 没有 SourceURL，无需同步
	}

	payload, checksum, err := s.download(ctx, sub.SourceURL)
	if err != nil {
		if updateErr := s.repo.UpdateSyncStatus(ctx, id, sub.Payload, sub.Checksum, err); updateErr != nil {
			log.Printf("[SubscriptionSync] failed to update sync status for %s after download error: %v", id, updateErr)
		}
		return err
	}

	// 如果内容没变，只更新同步时间
	if checksum == sub.Checksum {
		if updateErr := s.repo.UpdateSyncStatus(ctx, id, sub.Payload, sub.Checksum, nil); updateErr != nil {
			log.Printf("[SubscriptionSync] failed to update sync status for %s when checksum unchanged: %v", id, updateErr)
		}
		// 内容不变也要保证解析状态正确：否则会把 LastSyncError “误清空”。
		if err := s.syncProxiesFromPayload(ctx, id, sub.Payload); err != nil {
			if updateErr := s.repo.UpdateSyncStatus(ctx, id, sub.Payload, sub.Checksum, err); updateErr != nil {
				log.Printf("[SubscriptionSync] failed to update sync status for %s after parse error: %v", id, updateErr)
			}
			return err
		}
		return nil
	}

	// 更新内容
	if updateErr := s.repo.UpdateSyncStatus(ctx, id, payload, checksum, nil); updateErr != nil {
		log.Printf("[SubscriptionSync] failed to update sync status for %s after download: %v", id, updateErr)
	}

	// 解析并更新代理记录（解析失败时不清空旧记录）。
	if err := s.syncProxiesFromPayload(ctx, id, payload); err != nil {
		// 下载成功但解析失败：保留旧记录，同时把错误记录到订阅上，便于前端展示。
		if updateErr := s.repo.UpdateSyncStatus(ctx, id, payload, checksum, err); updateErr != nil {
			log.Printf("[SubscriptionSync] failed to update sync status for %s after parse error: %v", id, updateErr)
		}
		return err
	}

	return nil
}

// SyncAll 同步所有到期的订阅
func (s *Service) SyncAll(ctx context.Context) {
	subs, err := s.repo.List(ctx)
	if err != nil {
		return
	}

	for _, sub := range subs {
		if sub.SourceURL != "" && sub.AutoUpdateInterval > 0 {
			// 检查是否需要同步
			if time.Since(sub.LastSyncedAt) >= sub.AutoUpdateInterval {
				if err := s.Sync(ctx, sub.ID); err != nil {
					log.Printf("[SubscriptionSync] sync failed for %s: %v", sub.ID, err)
				}
			}
		}
	}
}

// ========== 内部方法 ==========

func (s *Service) syncProxiesFromPayload(ctx context.Context, subscriptionID, payload string) error {
	if s.proxyRepo == nil || strings.TrimSpace(subscriptionID) == "" {
		return nil
	}

	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		if _, err := s.proxyRepo.ReplaceProxiesForSubscription(ctx, subscriptionID, domain.ClearProxies); err != nil {
			log.Printf("[SubscriptionSync] clear proxies failed for %s: %v", subscriptionID, err)
			return err
		}
		return nil
	}

	result := share.ImportPayload(payload)
	if len(result.Failures) > 0 {
		log.Printf("[SubscriptionSync] parse errors for %s: %d", subscriptionID, len(result.Failures))
	}

	entries := share.FilterInfoEntries(result.Entries)
	if len(entries) == 0 {
		// payload 非空但解析不到记录：这通常是订阅格式不支持（如 Clash YAML/HTML 错误页/升级提示）。
		// 为避免破坏已有数据，这里不清空旧记录。
		return &subscriptionParseError{
			subscriptionID: subscriptionID,
			message:        "订阅内容无法解析为代理（仅支持 vless/vmess/ss/trojan/socks5/http 分享链接）；已保留现有记录",
		}
	}

	proxies := make([]domain.ProxyConfig, 0, len(entries))
	for _, entry := range entries {
		cfg := entry.Config
		cfg.ID = domain.StableProxyID(subscriptionID, cfg)
		proxies = append(proxies, cfg)
	}

	if _, err := s.proxyRepo.ReplaceProxiesForSubscription(ctx, subscriptionID, proxies); err != nil {
		log.Printf("[SubscriptionSync] update proxies failed for %s: %v", subscriptionID, err)
		return err
	}
	return nil
}

func (s *Service) download(ctx context.Context, sourceURL string) (payload, checksum string, err error) {
	// 使用订阅专用 User-Agent
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", subscriptionUserAgent)

	resp, err := shared.HTTPClientDirect.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", errors.New("download failed: " + resp.Status)
	}

	// 限制下载大小
	limitedReader := io.LimitReader(resp.Body, shared.MaxDownloadSize)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", "", err
	}

	// 计算校验和
	hash := sha256.Sum256(data)
	checksum = hex.EncodeToString(hash[:])

	return string(data), checksum, nil
}
