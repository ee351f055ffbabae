package proxies

import (
	"context"
	"fmt"
	"strings"

	"isolate/backend/domain"
	"isolate/backend/repository"
	"isolate/backend/service/share"
)

// Service 代理记录服务。
// 解析与落库之间隔着人工确认：Preview 只解析不落库，Create/Import
// 在落库边界做严格校验，带未解决警告的记录不允许直接入库。
type Service struct {
	repo repository.ProxyRepository
}

// NewService 创建代理记录服务
func NewService(repo repository.ProxyRepository) *Service {
	return &Service{repo: repo}
}

// ========== CRUD 操作 ==========

// List 列出所有代理记录
func (s *Service) List(ctx context.Context) ([]domain.ProxyConfig, error) {
	return s.repo.List(ctx)
}

// Get 获取代理记录
func (s *Service) Get(ctx context.Context, id string) (domain.ProxyConfig, error) {
	return s.repo.Get(ctx, id)
}

// Create 创建代理记录（落库边界，严格校验）
func (s *Service) Create(ctx context.Context, cfg domain.ProxyConfig) (domain.ProxyConfig, error) {
	if err := validateStrict(cfg); err != nil {
		return domain.ProxyConfig{}, err
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = cfg.Server
	}
	return s.repo.Create(ctx, cfg)
}

// Update 更新代理记录（同样过严格校验）
func (s *Service) Update(ctx context.Context, id string, cfg domain.ProxyConfig) (domain.ProxyConfig, error) {
	if err := validateStrict(cfg); err != nil {
		return domain.ProxyConfig{}, err
	}
	return s.repo.Update(ctx, id, cfg)
}

// Delete 删除代理记录
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// SetActive 激活代理记录（全局至多一条）
func (s *Service) SetActive(ctx context.Context, id string) (domain.ProxyConfig, error) {
	return s.repo.SetActive(ctx, id)
}

// ========== 分享链接操作 ==========

// Preview 解析单条分享链接，不落库。
// 返回结果带字段级警告，供前端确认界面展示。
func (s *Service) Preview(link string) (share.Result, error) {
	return share.Parse(link)
}

// ImportLink 解析单条分享链接并直接落库。
// 仅在解析结果没有警告时成功；有警告时要求走 Preview + 人工修正。
func (s *Service) ImportLink(ctx context.Context, link string) (domain.ProxyConfig, error) {
	res, err := share.Parse(link)
	if err != nil {
		return domain.ProxyConfig{}, err
	}
	if res.IsZero() {
		return domain.ProxyConfig{}, fmt.Errorf("%w: empty share link", repository.ErrInvalidData)
	}
	return s.Create(ctx, res.Config)
}

// ExportLink 将已存记录编码为分享链接
func (s *Service) ExportLink(ctx context.Context, id string) (string, error) {
	cfg, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return share.BuildShareLink(cfg)
}

// validateStrict 落库边界的硬校验。
// 与 share.Validate 的警告集合一致，但这里违规即拒绝。
func validateStrict(cfg domain.ProxyConfig) error {
	if !domain.IsKnownProtocol(cfg.Protocol) {
		return fmt.Errorf("%w: unknown protocol %q", repository.ErrInvalidData, cfg.Protocol)
	}
	if warnings := share.Validate(cfg); len(warnings) > 0 {
		return fmt.Errorf("%w: %s: %s", repository.ErrInvalidData, warnings[0].Field, warnings[0].Message)
	}
	return nil
}
