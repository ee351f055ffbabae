package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"isolate/backend/domain"
	"isolate/backend/repository"
	"isolate/backend/repository/events"
)

// ProxyRepo 代理记录仓储实现（内存）
type ProxyRepo struct {
	store *Store
}

func NewProxyRepo(store *Store) *ProxyRepo {
	return &ProxyRepo{store: store}
}

func (r *ProxyRepo) Get(_ context.Context, id string) (domain.ProxyConfig, error) {
	r.store.RLock()
	defer r.store.RUnlock()
	cfg, ok := r.store.Proxies()[id]
	if !ok {
		return domain.ProxyConfig{}, repository.ErrProxyNotFound
	}
	return cfg, nil
}

func (r *ProxyRepo) List(_ context.Context) ([]domain.ProxyConfig, error) {
	r.store.RLock()
	defer r.store.RUnlock()
	items := make([]domain.ProxyConfig, 0, len(r.store.Proxies()))
	for _, cfg := range r.store.Proxies() {
		items = append(items, cfg)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name == items[j].Name {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (r *ProxyRepo) Create(_ context.Context, cfg domain.ProxyConfig) (domain.ProxyConfig, error) {
	now := time.Now()
	r.store.Lock()
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	r.store.Proxies()[cfg.ID] = cfg
	r.store.Unlock()

	r.store.PublishEvent(events.ProxyEvent{
		EventType: events.EventProxyCreated,
		ProxyID:   cfg.ID,
		Proxy:     cfg,
	})
	return cfg, nil
}

func (r *ProxyRepo) Update(_ context.Context, id string, cfg domain.ProxyConfig) (domain.ProxyConfig, error) {
	r.store.Lock()
	current, ok := r.store.Proxies()[id]
	if !ok {
		r.store.Unlock()
		return domain.ProxyConfig{}, repository.ErrProxyNotFound
	}
	cfg.ID = id
	cfg.CreatedAt = current.CreatedAt
	cfg.UpdatedAt = time.Now()
	// 激活标记与来源订阅只能通过专用入口变更
	cfg.Active = current.Active
	cfg.SourceSubscriptionID = current.SourceSubscriptionID

	r.store.Proxies()[id] = cfg
	r.store.Unlock()

	r.store.PublishEvent(events.ProxyEvent{
		EventType: events.EventProxyUpdated,
		ProxyID:   id,
		Proxy:     cfg,
	})
	return cfg, nil
}

func (r *ProxyRepo) Delete(_ context.Context, id string) error {
	r.store.Lock()
	current, ok := r.store.Proxies()[id]
	if !ok {
		r.store.Unlock()
		return repository.ErrProxyNotFound
	}
	delete(r.store.Proxies(), id)
	r.store.Unlock()

	r.store.PublishEvent(events.ProxyEvent{
		EventType: events.EventProxyDeleted,
		ProxyID:   id,
		Proxy:     current,
	})
	return nil
}

func (r *ProxyRepo) ListBySubscriptionID(_ context.Context, subscriptionID string) ([]domain.ProxyConfig, error) {
	r.store.RLock()
	defer r.store.RUnlock()
	items := make([]domain.ProxyConfig, 0)
	for _, cfg := range r.store.Proxies() {
		if cfg.SourceSubscriptionID == subscriptionID {
			items = append(items, cfg)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name == items[j].Name {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (r *ProxyRepo) ReplaceProxiesForSubscription(_ context.Context, subscriptionID string, proxies []domain.ProxyConfig) ([]domain.ProxyConfig, error) {
	now := time.Now()
	next := make([]domain.ProxyConfig, 0, len(proxies))
	nextIDs := make(map[string]struct{}, len(proxies))
	for _, cfg := range proxies {
		cfg.SourceSubscriptionID = subscriptionID
		if strings.TrimSpace(cfg.Name) == "" && strings.TrimSpace(cfg.Server) != "" {
			cfg.Name = cfg.Server
		}
		if cfg.ID == "" {
			cfg.ID = domain.StableProxyID(subscriptionID, cfg)
		}
		if cfg.CreatedAt.IsZero() {
			cfg.CreatedAt = now
		}
		cfg.UpdatedAt = now
		next = append(next, cfg)
		nextIDs[cfg.ID] = struct{}{}
	}

	eventsToPublish := make([]events.Event, 0, len(next)+8)

	r.store.Lock()
	// ReplaceProxiesForSubscription 语义：对指定订阅的记录集合做“替换”
	// - proxies == nil: 显式清空该订阅的全部记录
	// - len(proxies) > 0: 以入参作为最新快照，删除不在快照内的历史记录（避免记录越积越多）
	// - len(proxies) == 0: 不做删除（保持历史记录），用于调用方表达“本次不更新记录集合”
	for id, existing := range r.store.Proxies() {
		if existing.SourceSubscriptionID != subscriptionID {
			continue
		}
		if proxies == nil {
			delete(r.store.Proxies(), id)
			eventsToPublish = append(eventsToPublish, events.ProxyEvent{
				EventType: events.EventProxyDeleted,
				ProxyID:   id,
				Proxy:     existing,
			})
			continue
		}
		if len(proxies) > 0 {
			if _, ok := nextIDs[id]; ok {
				continue
			}
			delete(r.store.Proxies(), id)
			eventsToPublish = append(eventsToPublish, events.ProxyEvent{
				EventType: events.EventProxyDeleted,
				ProxyID:   id,
				Proxy:     existing,
			})
		}
	}

	// Upsert 记录集合
	for i := range next {
		cfg := next[i]
		if existing, ok := r.store.Proxies()[cfg.ID]; ok {
			cfg.CreatedAt = existing.CreatedAt
			// 激活标记与用户改名在刷新后保留（同 ID 代表同一记录）
			cfg.Active = existing.Active
			if strings.TrimSpace(existing.Name) != "" {
				cfg.Name = existing.Name
			}
			next[i] = cfg
			r.store.Proxies()[cfg.ID] = cfg
			eventsToPublish = append(eventsToPublish, events.ProxyEvent{
				EventType: events.EventProxyUpdated,
				ProxyID:   cfg.ID,
				Proxy:     cfg,
			})
			continue
		}
		r.store.Proxies()[cfg.ID] = cfg
		eventsToPublish = append(eventsToPublish, events.ProxyEvent{
			EventType: events.EventProxyCreated,
			ProxyID:   cfg.ID,
			Proxy:     cfg,
		})
	}
	r.store.Unlock()

	for _, event := range eventsToPublish {
		r.store.PublishEvent(event)
	}

	// 返回按名称排序后的结果（对前端更友好）
	sort.Slice(next, func(i, j int) bool {
		if next[i].Name == next[j].Name {
			return next[i].CreatedAt.Before(next[j].CreatedAt)
		}
		return next[i].Name < next[j].Name
	})
	return next, nil
}

func (r *ProxyRepo) SetActive(_ context.Context, id string) (domain.ProxyConfig, error) {
	eventsToPublish := make([]events.Event, 0, 2)

	r.store.Lock()
	cfg, ok := r.store.Proxies()[id]
	if !ok {
		r.store.Unlock()
		return domain.ProxyConfig{}, repository.ErrProxyNotFound
	}
	now := time.Now()
	// 全局至多一条激活记录
	for otherID, other := range r.store.Proxies() {
		if otherID == id || !other.Active {
			continue
		}
		other.Active = false
		other.UpdatedAt = now
		r.store.Proxies()[otherID] = other
		eventsToPublish = append(eventsToPublish, events.ProxyEvent{
			EventType: events.EventProxyUpdated,
			ProxyID:   otherID,
			Proxy:     other,
		})
	}
	cfg.Active = true
	cfg.UpdatedAt = now
	r.store.Proxies()[id] = cfg
	eventsToPublish = append(eventsToPublish, events.ProxyEvent{
		EventType: events.EventProxyUpdated,
		ProxyID:   id,
		Proxy:     cfg,
	})
	r.store.Unlock()

	for _, event := range eventsToPublish {
		r.store.PublishEvent(event)
	}
	return cfg, nil
}

// 确保实现接口
var _ repository.ProxyRepository = (*ProxyRepo)(nil)
