package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"isolate/backend/domain"
	"isolate/backend/repository"
	"isolate/backend/repository/events"
)

// SchemaVersion 当前架构版本
const SchemaVersion = "1.0.0"

// Snapshotter 快照管理器：事件驱动 + 防抖的 JSON 落盘
type Snapshotter struct {
	path  string
	store repository.Snapshottable

	mu       sync.Mutex
	pending  bool
	dirty    bool
	debounce time.Duration

	saveMu sync.Mutex
}

// NewSnapshotter 创建快照管理器
func NewSnapshotter(path string, store repository.Snapshottable) *Snapshotter {
	return &Snapshotter{
		path:     path,
		store:    store,
		debounce: 200 * time.Millisecond,
	}
}

// SetDebounce 设置防抖延迟
func (s *Snapshotter) SetDebounce(d time.Duration) {
	s.mu.Lock()
	s.debounce = d
	s.mu.Unlock()
}

// SubscribeEvents 订阅事件总线（所有写操作触发持久化）
func (s *Snapshotter) SubscribeEvents(bus *events.Bus) {
	bus.SubscribeAll(func(event events.Event) {
		s.Schedule()
	})
}

// Schedule 调度快照（防抖）
func (s *Snapshotter) Schedule() {
	s.mu.Lock()
	if s.pending {
		s.dirty = true
		s.mu.Unlock()
		return
	}
	s.pending = true
	s.dirty = false
	s.mu.Unlock()

	go func() {
		for {
			s.mu.Lock()
			debounce := s.debounce
			s.mu.Unlock()

			time.Sleep(debounce)
			_ = s.save()

			s.mu.Lock()
			if s.dirty {
				s.dirty = false
				s.mu.Unlock()
				continue
			}
			s.pending = false
			s.mu.Unlock()
			return
		}
	}()
}

// SaveNow 立即保存（同步）
func (s *Snapshotter) SaveNow() error {
	return s.save()
}

func (s *Snapshotter) save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.doSave()
}

// doSave 执行保存
func (s *Snapshotter) doSave() error {
	state := s.store.Snapshot()
	state.SchemaVersion = SchemaVersion
	state.GeneratedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("[Snapshot] marshal failed: %v", err)
		return err
	}

	if err := atomicWrite(s.path, data); err != nil {
		log.Printf("[Snapshot] write failed: %v", err)
		return err
	}

	return nil
}

// Load 加载状态（版本校验）
func (s *Snapshotter) Load() (domain.ServiceState, error) {
	return Load(s.path)
}

// atomicWrite 原子写入
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load 加载状态文件。
// 文件不存在或为空时返回空状态，不视为错误（首次启动）。
// schemaVersion 不匹配时拒绝加载，避免静默丢字段。
func Load(path string) (domain.ServiceState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ServiceState{SchemaVersion: SchemaVersion}, nil
		}
		return domain.ServiceState{}, err
	}

	if len(data) == 0 {
		return domain.ServiceState{SchemaVersion: SchemaVersion}, nil
	}

	// 先只解析 schemaVersion，避免直接丢字段导致不可逆数据丢失。
	var meta struct {
		SchemaVersion string `json:"schemaVersion,omitempty"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.ServiceState{}, fmt.Errorf("failed to parse state: %w", err)
	}
	if meta.SchemaVersion != "" && meta.SchemaVersion != SchemaVersion {
		return domain.ServiceState{}, fmt.Errorf("unsupported schemaVersion %s (expected %s)", meta.SchemaVersion, SchemaVersion)
	}

	var state domain.ServiceState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.ServiceState{}, fmt.Errorf("failed to parse state: %w", err)
	}
	state.SchemaVersion = SchemaVersion
	if state.GeneratedAt.IsZero() {
		state.GeneratedAt = time.Now()
	}
	return state, nil
}

// Save 保存状态文件（原子写入）
func Save(path string, state domain.ServiceState) error {
	state.SchemaVersion = SchemaVersion
	state.GeneratedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}
