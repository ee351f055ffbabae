package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// StableProxyID 基于订阅 ID 与记录指纹生成稳定的代理 ID。
// 同一订阅多次拉取时，参数未变的记录保持同一 ID，避免前端选择状态与激活标记漂移。
// 指纹内容一经发布不可变更，否则存量 ID 会整体漂移。
func StableProxyID(subscriptionID string, cfg ProxyConfig) string {
	type fingerprint struct {
		Protocol ProxyProtocol `json:"protocol"`
		Server   string        `json:"server"`
		Port     int           `json:"port"`
		UUID     string        `json:"uuid,omitempty"`
		Username string        `json:"username,omitempty"`
		Password string        `json:"password,omitempty"`
		Method   string        `json:"method,omitempty"`
	}
	b, _ := json.Marshal(fingerprint{
		Protocol: cfg.Protocol,
		Server:   cfg.Server,
		Port:     cfg.Port,
		UUID:     cfg.UUID,
		Username: cfg.Username,
		Password: cfg.Password,
		Method:   cfg.Method,
	})
	return uuid.NewSHA1(uuid.NameSpaceOID, append([]byte(subscriptionID+"|"), b...)).String()
}
