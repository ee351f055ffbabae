package repository

import (
	"context"

	"isolate/backend/domain"
)

// ProxyRepository 代理记录仓储接口
type ProxyRepository interface {
	// 基础 CRUD
	Get(ctx context.Context, id string) (domain.ProxyConfig, error)
	List(ctx context.Context) ([]domain.ProxyConfig, error)
	Create(ctx context.Context, cfg domain.ProxyConfig) (domain.ProxyConfig, error)
	Update(ctx context.Context, id string, cfg domain.ProxyConfig) (domain.ProxyConfig, error)
	Delete(ctx context.Context, id string) error

	// 按订阅 ID 查询/批量替换（用于订阅刷新）
	ListBySubscriptionID(ctx context.Context, subscriptionID string) ([]domain.ProxyConfig, error)
	ReplaceProxiesForSubscription(ctx context.Context, subscriptionID string, proxies []domain.ProxyConfig) ([]domain.ProxyConfig, error)

	// 激活（全局至多一条激活记录）
	SetActive(ctx context.Context, id string) (domain.ProxyConfig, error)
}

// SubscriptionRepository 订阅仓储接口
type SubscriptionRepository interface {
	// 基础 CRUD
	Get(ctx context.Context, id string) (domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
	Create(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)
	Update(ctx context.Context, id string, sub domain.Subscription) (domain.Subscription, error)
	Delete(ctx context.Context, id string) error

	// 同步状态更新
	UpdateSyncStatus(ctx context.Context, id string, payload, checksum string, syncErr error) error
}

// SettingsRepository 设置仓储接口（单例设置）
type SettingsRepository interface {
	// 前端设置
	GetFrontend(ctx context.Context) (map[string]interface{}, error)
	UpdateFrontend(ctx context.Context, settings map[string]interface{}) (map[string]interface{}, error)
}

// Repositories 聚合所有仓储的容器接口
type Repositories interface {
	Proxy() ProxyRepository
	Subscription() SubscriptionRepository
	Settings() SettingsRepository
}

// NewRepositories 创建仓储容器
func NewRepositories(store Snapshottable, proxy ProxyRepository, subscription SubscriptionRepository, settings SettingsRepository) *RepositoriesImpl {
	return &RepositoriesImpl{
		Store:            store,
		ProxyRepo:        proxy,
		SubscriptionRepo: subscription,
		SettingsRepo:     settings,
	}
}

// RepositoriesImpl 仓储容器实现
type RepositoriesImpl struct {
	Store Snapshottable

	ProxyRepo        ProxyRepository
	SubscriptionRepo SubscriptionRepository
	SettingsRepo     SettingsRepository
}

// 实现 Repositories 接口
func (r *RepositoriesImpl) Proxy() ProxyRepository               { return r.ProxyRepo }
func (r *RepositoriesImpl) Subscription() SubscriptionRepository { return r.SubscriptionRepo }
func (r *RepositoriesImpl) Settings() SettingsRepository         { return r.SettingsRepo }

func (r *RepositoriesImpl) Snapshot() domain.ServiceState {
	if r.Store == nil {
		return domain.ServiceState{}
	}
	return r.Store.Snapshot()
}

func (r *RepositoriesImpl) LoadState(state domain.ServiceState) {
	if r.Store == nil {
		return
	}
	r.Store.LoadState(state)
}

// Snapshottable 可快照的存储接口
type Snapshottable interface {
	// Snapshot 生成状态快照
	Snapshot() domain.ServiceState

	// LoadState 加载状态
	LoadState(state domain.ServiceState)
}
