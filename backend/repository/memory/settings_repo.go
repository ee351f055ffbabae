package memory

import (
	"context"

	"isolate/backend/repository"
	"isolate/backend/repository/events"
)

// SettingsRepo 设置仓储实现
type SettingsRepo struct {
	store *Store
}

// NewSettingsRepo 创建设置仓储
func NewSettingsRepo(store *Store) *SettingsRepo {
	return &SettingsRepo{store: store}
}

// GetFrontend 获取前端设置
func (r *SettingsRepo) GetFrontend(ctx context.Context) (map[string]interface{}, error) {
	r.store.RLock()
	defer r.store.RUnlock()
	return r.store.GetFrontendSettings(), nil
}

// UpdateFrontend 更新前端设置
func (r *SettingsRepo) UpdateFrontend(ctx context.Context, settings map[string]interface{}) (map[string]interface{}, error) {
	r.store.Lock()
	r.store.SetFrontendSettings(settings)
	r.store.Unlock()

	// 在锁外发布事件
	r.store.PublishEvent(events.SettingsEvent{
		EventType: events.EventFrontendSettingsChanged,
	})

	return settings, nil
}

// 确保实现接口
var _ repository.SettingsRepository = (*SettingsRepo)(nil)
