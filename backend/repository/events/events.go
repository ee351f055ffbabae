package events

import "isolate/backend/domain"

// EventType 事件类型
type EventType string

const (
	// 代理记录事件
	EventProxyCreated EventType = "proxy.created"
	EventProxyUpdated EventType = "proxy.updated"
	EventProxyDeleted EventType = "proxy.deleted"

	// 订阅事件
	EventSubscriptionCreated EventType = "subscription.created"
	EventSubscriptionUpdated EventType = "subscription.updated"
	EventSubscriptionDeleted EventType = "subscription.deleted"

	// 设置事件
	EventFrontendSettingsChanged EventType = "settings.frontend_changed"

	// 通配符事件（用于订阅所有事件）
	EventAll EventType = "*"
)

// Event 事件接口
type Event interface {
	Type() EventType
}

// ProxyEvent 代理记录事件
type ProxyEvent struct {
	EventType EventType
	ProxyID   string
	Proxy     domain.ProxyConfig
}

func (e ProxyEvent) Type() EventType { return e.EventType }

// SubscriptionEvent 订阅事件
type SubscriptionEvent struct {
	EventType      EventType
	SubscriptionID string
	Subscription   domain.Subscription
}

func (e SubscriptionEvent) Type() EventType { return e.EventType }

// SettingsEvent 设置事件
type SettingsEvent struct {
	EventType EventType
}

func (e SettingsEvent) Type() EventType { return e.EventType }
