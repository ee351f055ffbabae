package shared

import (
	"net"
	"net/http"
	"time"
)

// 常量定义
const (
	MaxDownloadSize = 8 << 20 // 8 MiB
	DownloadTimeout = 30 * time.Second
)

// HTTPClientDirect 不使用代理的 HTTP 客户端。
// 订阅拉取走这个客户端，避免经由本应用管理的代理自举。
var HTTPClientDirect = &http.Client{
	Timeout: DownloadTimeout,
	Transport: &http.Transport{
		Proxy:               nil,
		DialContext:         (&net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		DisableKeepAlives:   true,
		TLSHandshakeTimeout: 15 * time.Second,
	},
}
