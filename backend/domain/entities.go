package domain

import (
	"time"
)

type ProxyProtocol string

const (
	ProtocolVLESS       ProxyProtocol = "vless"
	ProtocolVMess       ProxyProtocol = "vmess"
	ProtocolShadowsocks ProxyProtocol = "shadowsocks"
	ProtocolTrojan      ProxyProtocol = "trojan"
	ProtocolSOCKS5      ProxyProtocol = "socks5"
	ProtocolHTTP        ProxyProtocol = "http"
	ProtocolHTTPS       ProxyProtocol = "https"
)

// KnownProtocols 当前支持的协议全集（封闭集合；新增协议需同步扩展解析与导出）。
var KnownProtocols = []ProxyProtocol{
	ProtocolVLESS,
	ProtocolVMess,
	ProtocolShadowsocks,
	ProtocolTrojan,
	ProtocolSOCKS5,
	ProtocolHTTP,
	ProtocolHTTPS,
}

// IsKnownProtocol 检查协议标签是否在支持集合内。
func IsKnownProtocol(p ProxyProtocol) bool {
	for _, known := range KnownProtocols {
		if p == known {
			return true
		}
	}
	return false
}

// ProxyConfig 规范化代理记录：所有分享链接方言解码后的统一落点。
// 字段覆盖六类协议的并集；各协议仅填自己需要的子集，其余保持零值。
type ProxyConfig struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Protocol ProxyProtocol `json:"protocol"`
	Server   string        `json:"server"`
	Port     int           `json:"port"`

	// 认证凭据（按协议取用）
	UUID     string `json:"uuid,omitempty"`     // vless / vmess
	Username string `json:"username,omitempty"` // socks5 / http(s)
	Password string `json:"password,omitempty"` // trojan / shadowsocks / socks5 / http(s)
	Method   string `json:"method,omitempty"`   // shadowsocks 加密方法

	TLS       bool   `json:"tls"`
	SNI       string `json:"sni,omitempty"`
	Transport string `json:"transport,omitempty"` // ws / grpc / tcp 等

	SourceSubscriptionID string    `json:"sourceSubscriptionId,omitempty"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Subscription 订阅源：一个返回分享链接列表（可能整体 base64）的远端 URL。
type Subscription struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	SourceURL          string        `json:"sourceUrl"`
	Payload            string        `json:"payload,omitempty"`
	Checksum           string        `json:"checksum,omitempty"`
	LastSyncError      string        `json:"lastSyncError,omitempty"`
	AutoUpdateInterval time.Duration `json:"autoUpdateInterval"`
	LastSyncedAt       time.Time     `json:"lastSyncedAt"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

type ServiceState struct {
	// 版本管理
	SchemaVersion string `json:"schemaVersion,omitempty"`

	Proxies          []ProxyConfig          `json:"proxies"`
	Subscriptions    []Subscription         `json:"subscriptions"`
	FrontendSettings map[string]interface{} `json:"frontendSettings,omitempty"`

	GeneratedAt time.Time `json:"generatedAt"`
}
