package share

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"isolate/backend/domain"
)

// BuildShareLink 将规范化代理记录编码回分享链接。
// 与 Parse 互逆：导出的链接再解析应得到等价记录。
func BuildShareLink(cfg domain.ProxyConfig) (string, error) {
	switch cfg.Protocol {
	case domain.ProtocolVLESS:
		return buildVLESSLink(cfg)
	case domain.ProtocolVMess:
		return buildVMessLink(cfg)
	case domain.ProtocolShadowsocks:
		return buildShadowsocksLink(cfg)
	case domain.ProtocolTrojan:
		return buildTrojanLink(cfg)
	case domain.ProtocolSOCKS5:
		return buildPlainLink("socks5", cfg), nil
	case domain.ProtocolHTTP:
		return buildPlainLink("http", cfg), nil
	case domain.ProtocolHTTPS:
		return buildPlainLink("https", cfg), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, cfg.Protocol)
	}
}

func buildVLESSLink(cfg domain.ProxyConfig) (string, error) {
	if cfg.UUID == "" {
		return "", fmt.Errorf("%w: vless export requires uuid", ErrFieldValidation)
	}
	query := url.Values{}
	if cfg.TLS {
		query.Set("security", "tls")
	}
	if cfg.SNI != "" {
		query.Set("sni", cfg.SNI)
	}
	if cfg.Transport != "" {
		query.Set("type", cfg.Transport)
	}
	link := "vless://" + cfg.UUID + "@" + hostPortString(cfg)
	if encoded := query.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return link + nameFragment(cfg.Name), nil
}

func buildVMessLink(cfg domain.ProxyConfig) (string, error) {
	if cfg.UUID == "" {
		return "", fmt.Errorf("%w: vmess export requires uuid", ErrFieldValidation)
	}
	payload := map[string]interface{}{
		"v":    "2",
		"ps":   cfg.Name,
		"add":  cfg.Server,
		"port": strconv.Itoa(cfg.Port),
		"id":   cfg.UUID,
	}
	if cfg.TLS {
		payload["tls"] = "tls"
	}
	if cfg.SNI != "" {
		payload["sni"] = cfg.SNI
	}
	if cfg.Transport != "" {
		payload["net"] = cfg.Transport
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrJSONDecode, err)
	}
	return "vmess://" + base64.StdEncoding.EncodeToString(b), nil
}

func buildShadowsocksLink(cfg domain.ProxyConfig) (string, error) {
	if cfg.Password == "" {
		return "", fmt.Errorf("%w: shadowsocks export requires password", ErrFieldValidation)
	}
	method := cfg.Method
	if method == "" {
		method = "aes-256-gcm"
	}
	userinfo := base64.StdEncoding.EncodeToString([]byte(method + ":" + cfg.Password))
	return "ss://" + userinfo + "@" + hostPortString(cfg) + nameFragment(cfg.Name), nil
}

func buildTrojanLink(cfg domain.ProxyConfig) (string, error) {
	if cfg.Password == "" {
		return "", fmt.Errorf("%w: trojan export requires password", ErrFieldValidation)
	}
	query := url.Values{}
	if cfg.SNI != "" {
		query.Set("sni", cfg.SNI)
	}
	if cfg.Transport != "" {
		query.Set("type", cfg.Transport)
	}
	link := "trojan://" + url.QueryEscape(cfg.Password) + "@" + hostPortString(cfg)
	if encoded := query.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return link + nameFragment(cfg.Name), nil
}

// buildPlainLink 构造 socks5/http/https 形式的链接（认证可选）
func buildPlainLink(scheme string, cfg domain.ProxyConfig) string {
	link := scheme + "://"
	if cfg.Username != "" {
		link += url.QueryEscape(cfg.Username)
		if cfg.Password != "" {
			link += ":" + url.QueryEscape(cfg.Password)
		}
		link += "@"
	}
	return link + hostPortString(cfg) + nameFragment(cfg.Name)
}

func hostPortString(cfg domain.ProxyConfig) string {
	host := cfg.Server
	// IPv6 字面量需要方括号
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return host + ":" + strconv.Itoa(cfg.Port)
}

func nameFragment(name string) string {
	if name == "" {
		return ""
	}
	return "#" + url.QueryEscape(name)
}
