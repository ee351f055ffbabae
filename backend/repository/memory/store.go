package memory

import (
	"sort"
	"sync"
	"time"

	"isolate/backend/domain"
	"isolate/backend/repository/events"

	"github.com/google/uuid"
)

// Store 内存存储引擎
type Store struct {
	mu sync.RWMutex

	// 数据存储
	proxies       map[string]domain.ProxyConfig
	subscriptions map[string]domain.Subscription

	// 单例设置
	frontendSettings map[string]interface{}

	// 事件总线
	eventBus *events.Bus
}

// NewStore 创建新的内存存储
func NewStore(eventBus *events.Bus) *Store {
	return &Store{
		proxies:       make(map[string]domain.ProxyConfig),
		subscriptions: make(map[string]domain.Subscription),
		eventBus:      eventBus,
	}
}

// ========== 锁操作（供仓储使用）==========

// RLock 获取读锁
func (s *Store) RLock() { s.mu.RLock() }

// RUnlock 释放读锁
func (s *Store) RUnlock() { s.mu.RUnlock() }

// Lock 获取写锁
func (s *Store) Lock() { s.mu.Lock() }

// Unlock 释放写锁
func (s *Store) Unlock() { s.mu.Unlock() }

// ========== 事件发布 ==========

// PublishEvent 发布事件（异步，应在锁外调用）
func (s *Store) PublishEvent(event events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(event)
	}
}

// PublishEventSync 发布事件（同步，应在锁外调用）
func (s *Store) PublishEventSync(event events.Event) {
	if s.eventBus != nil {
		s.eventBus.PublishSync(event)
	}
}

// ========== 数据访问（供仓储内部使用）==========

// Proxies 返回代理记录映射（需持有锁）
func (s *Store) Proxies() map[string]domain.ProxyConfig { return s.proxies }

// Subscriptions 返回订阅映射（需持有锁）
func (s *Store) Subscriptions() map[string]domain.Subscription { return s.subscriptions }

// ========== 单例设置访问 ==========

// GetFrontendSettings 获取前端设置（需持有锁）
func (s *Store) GetFrontendSettings() map[string]interface{} {
	if s.frontendSettings == nil {
		return make(map[string]interface{})
	}
	return cloneFrontendSettings(s.frontendSettings)
}

// SetFrontendSettings 设置前端设置（需持有锁）
func (s *Store) SetFrontendSettings(settings map[string]interface{}) {
	if settings == nil {
		s.frontendSettings = nil
		return
	}
	s.frontendSettings = cloneFrontendSettings(settings)
}

// ========== 快照与恢复 ==========

// Snapshot 生成状态快照
func (s *Store) Snapshot() domain.ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// 复制代理记录
	proxies := make([]domain.ProxyConfig, 0, len(s.proxies))
	for _, p := range s.proxies {
		proxies = append(proxies, p)
	}
	sort.Slice(proxies, func(i, j int) bool {
		if proxies[i].Name == proxies[j].Name {
			return proxies[i].CreatedAt.Before(proxies[j].CreatedAt)
		}
		return proxies[i].Name < proxies[j].Name
	})

	// 复制订阅
	subscriptions := make([]domain.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		subscriptions = append(subscriptions, sub)
	}
	sort.Slice(subscriptions, func(i, j int) bool {
		return subscriptions[i].CreatedAt.Before(subscriptions[j].CreatedAt)
	})

	return domain.ServiceState{
		Proxies:          proxies,
		Subscriptions:    subscriptions,
		FrontendSettings: cloneFrontendSettings(s.frontendSettings),
		GeneratedAt:      time.Now(),
	}
}

// LoadState 加载状态
func (s *Store) LoadState(state domain.ServiceState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	// 加载代理记录
	s.proxies = make(map[string]domain.ProxyConfig)
	for _, p := range state.Proxies {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		s.proxies[p.ID] = p
	}

	// 加载订阅
	s.subscriptions = make(map[string]domain.Subscription)
	for _, sub := range state.Subscriptions {
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		if sub.CreatedAt.IsZero() {
			sub.CreatedAt = now
		}
		if sub.UpdatedAt.IsZero() {
			sub.UpdatedAt = sub.CreatedAt
		}
		s.subscriptions[sub.ID] = sub
	}

	s.frontendSettings = cloneFrontendSettings(state.FrontendSettings)
}

func cloneFrontendSettings(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneFrontendValue(v)
	}
	return out
}

func cloneFrontendValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		return cloneFrontendSettings(x)
	case []interface{}:
		out := make([]interface{}, 0, len(x))
		for _, item := range x {
			out = append(out, cloneFrontendValue(item))
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(x))
		for k, v := range x {
			out[k] = v
		}
		return out
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out
	default:
		return v
	}
}
