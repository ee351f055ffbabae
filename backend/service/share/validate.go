package share

import (
	"fmt"
	"strings"

	"isolate/backend/domain"
)

// Warning 字段级校验警告
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate 校验规范化代理记录，返回字段级警告列表。
// 校验从不丢弃记录：警告随记录一起返回，由前端在人工确认前展示，
// 用户修正或明确接受后才允许落库。
func Validate(cfg domain.ProxyConfig) []Warning {
	var warnings []Warning

	if strings.TrimSpace(cfg.Server) == "" {
		warnings = append(warnings, Warning{Field: "server", Message: "server is required"})
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		warnings = append(warnings, Warning{Field: "port", Message: fmt.Sprintf("port %d out of range", cfg.Port)})
	}

	switch cfg.Protocol {
	case domain.ProtocolVLESS, domain.ProtocolVMess:
		if strings.TrimSpace(cfg.UUID) == "" {
			warnings = append(warnings, Warning{Field: "uuid", Message: string(cfg.Protocol) + " requires a uuid"})
		}
	case domain.ProtocolTrojan:
		if cfg.Password == "" {
			warnings = append(warnings, Warning{Field: "password", Message: "trojan requires a password"})
		}
	case domain.ProtocolShadowsocks:
		if cfg.Method == "" {
			warnings = append(warnings, Warning{Field: "method", Message: "shadowsocks requires an encryption method"})
		}
		if cfg.Password == "" {
			warnings = append(warnings, Warning{Field: "password", Message: "shadowsocks requires a password"})
		}
	case domain.ProtocolSOCKS5, domain.ProtocolHTTP, domain.ProtocolHTTPS:
		// 认证可选，但给了用户名就要给密码
		if cfg.Username != "" && cfg.Password == "" {
			warnings = append(warnings, Warning{Field: "password", Message: "password is required when username is set"})
		}
	default:
		warnings = append(warnings, Warning{Field: "protocol", Message: fmt.Sprintf("unknown protocol %q", cfg.Protocol)})
	}

	return warnings
}
