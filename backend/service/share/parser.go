package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"isolate/backend/domain"
)

// Result 单条分享链接的解析结果。
// Warnings 为字段级校验警告：解码尽力而为，警告不会使解析失败，
// 由前端在人工确认时展示。
type Result struct {
	Config   domain.ProxyConfig `json:"config"`
	Warnings []Warning          `json:"warnings,omitempty"`
}

// IsZero 报告结果是否为空（空白输入的无操作结果）
func (r Result) IsZero() bool { return r.Config.Protocol == "" }

// Parse 解析单条分享链接为规范化代理记录。
// 空白输入不是错误，返回零值 Result。
// 解析失败返回可恢复错误，调用方用 errors.Is 区分五类失败原因。
func Parse(link string) (Result, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return Result{}, nil
	}

	var (
		cfg domain.ProxyConfig
		err error
	)
	switch {
	case strings.HasPrefix(link, "vless://"):
		cfg, err = parseVLESS(link)
	case strings.HasPrefix(link, "vmess://"):
		cfg, err = parseVMess(link)
	case strings.HasPrefix(link, "ss://"):
		cfg, err = parseShadowsocks(link)
	case strings.HasPrefix(link, "trojan://"):
		cfg, err = parseTrojan(link)
	case strings.HasPrefix(link, "socks5://"), strings.HasPrefix(link, "socks://"):
		cfg, err = parseSOCKS(link)
	case strings.HasPrefix(link, "http://"), strings.HasPrefix(link, "https://"):
		cfg, err = parseHTTP(link)
	default:
		scheme, _, found := strings.Cut(link, "://")
		if !found {
			return Result{}, fmt.Errorf("%w: missing scheme", ErrUnsupportedScheme)
		}
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Config: cfg, Warnings: Validate(cfg)}, nil
}

// parseVLESS 解析 VLESS 链接
// 格式: vless://uuid@host:port?security=tls&sni=xxx&type=ws#名称
func parseVLESS(link string) (domain.ProxyConfig, error) {
	rest, name := splitFragment(strings.TrimPrefix(link, "vless://"))
	rest, query := splitQuery(rest)

	at := strings.LastIndex(rest, "@")
	if at == -1 {
		return domain.ProxyConfig{}, fmt.Errorf("%w: vless link missing '@'", ErrMalformedURI)
	}
	id := rest[:at]
	if id == "" {
		return domain.ProxyConfig{}, fmt.Errorf("%w: vless link missing uuid", ErrMalformedURI)
	}

	host, portStr, err := splitHostPort(trimPathSuffix(rest[at+1:]))
	if err != nil {
		return domain.ProxyConfig{}, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	if host == "" {
		return domain.ProxyConfig{}, fmt.Errorf("%w: vless link missing host", ErrMalformedURI)
	}
	if portStr == "" {
		return domain.ProxyConfig{}, fmt.Errorf("%w: vless link missing port", ErrMalformedURI)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return domain.ProxyConfig{}, err
	}

	security := query.Get("security")
	sni := query.Get("sni")
	if sni == "" {
		sni = query.Get("host")
	}
	if name == "" {
		name = defaultName("VLESS", host)
	}

	return domain.ProxyConfig{
		Name:      name,
		Protocol:  domain.ProtocolVLESS,
		Server:    host,
		Port:      port,
		UUID:      id,
		TLS:       security == "tls" || security == "reality",
		SNI:       sni,
		Transport: query.Get("type"),
	}, nil
}

// parseVMess 解析 VMess 链接
// 格式: vmess://base64(JSON)；端口字段在野外既有字符串也有数字
func parseVMess(link string) (domain.ProxyConfig, error) {
	encoded := strings.TrimSpace(strings.TrimPrefix(link, "vmess://"))
	decoded, err := decodeBase64Flexible(encoded)
	if err != nil {
		return domain.ProxyConfig{}, fmt.Errorf("%w: vmess payload", ErrBase64Decode)
	}

	var payload struct {
		ID      string      `json:"id"`
		Add     string      `json:"add"`
		Address string      `json:"address"`
		Host    string      `json:"host"`
		Port    interface{} `json:"port"`
		PS      string      `json:"ps"`
		Remarks string      `json:"remarks"`
		TLS     string      `json:"tls"`
		SNI     string      `json:"sni"`
		Net     string      `json:"net"`
	}
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return domain.ProxyConfig{}, fmt.Errorf("%w: vmess payload: %v", ErrJSONDecode, err)
	}

	server := payload.Add
	if server == "" {
		server = payload.Address
	}
	if server == "" {
		server = payload.Host
	}
	if server == "" {
		return domain.ProxyConfig{}, fmt.Errorf("%w: vmess payload missing server", ErrMalformedURI)
	}

	var port int
	switch v := payload.Port.(type) {
	case string:
		if v == "" {
			return domain.ProxyConfig{}, fmt.Errorf("%w: vmess payload missing port", ErrMalformedURI)
		}
		port, err = parsePort(v)
		if err != nil {
			return domain.ProxyConfig{}, err
		}
	case float64:
		port = int(v)
		if float64(port) != v || port < 1 || port > 65535 {
			return domain.ProxyConfig{}, fmt.Errorf("%w: port %v out of range", ErrFieldValidation, v)
		}
	case nil:
		return domain.ProxyConfig{}, fmt.Errorf("%w: vmess payload missing port", ErrMalformedURI)
	default:
		return domain.ProxyConfig{}, fmt.Errorf("%w: vmess port has unexpected type", ErrJSONDecode)
	}

	sni := payload.SNI
	if sni == "" {
		sni = payload.Host
	}
	name := payload.PS
	if name == "" {
		name = payload.Remarks
	}
	if name == "" {
		name = defaultName("VMess", server)
	}

	return domain.ProxyConfig{
		Name:      name,
		Protocol:  domain.ProtocolVMess,
		Server:    server,
		Port:      port,
		UUID:      payload.ID,
		TLS:       payload.TLS == "tls",
		SNI:       sni,
		Transport: payload.Net,
	}, nil
}

// parseShadowsocks 解析 Shadowsocks 链接。
// 先按 SIP002 形式尝试（ss://base64(method:password)@host:port#名称），
// 结构不符合时回退 legacy 形式（ss://base64(method:password@host:port)#名称）。
func parseShadowsocks(link string) (domain.ProxyConfig, error) {
	rest, name := splitFragment(strings.TrimPrefix(link, "ss://"))

	if at := strings.LastIndex(rest, "@"); at != -1 {
		cfg, err := parseShadowsocksSIP002(rest[:at], rest[at+1:], name)
		if err == nil {
			return cfg, nil
		}
		// 端口等字段级错误直接上报；仅结构不符合时回退 legacy
		if errors.Is(err, ErrFieldValidation) {
			return domain.ProxyConfig{}, err
		}
	}
	return parseShadowsocksLegacy(rest, name)
}

func parseShadowsocksSIP002(userinfo, hostPart, name string) (domain.ProxyConfig, error) {
	decoded, err := decodeBase64Flexible(userinfo)
	if err != nil {
		return domain.ProxyConfig{}, fmt.Errorf("%w: ss userinfo", ErrBase64Decode)
	}
	method, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return domain.ProxyConfig{}, fmt.Errorf("%w: ss userinfo missing method:password", ErrMalformedURI)
	}

	// 部分客户端在 host:port 后追加 /?plugin=... 参数
	if idx := strings.IndexAny(hostPart, "/?"); idx != -1 {
		hostPart = hostPart[:idx]
	}
	return shadowsocksConfig(method, password, hostPart, name)
}

func parseShadowsocksLegacy(rest, name string) (domain.ProxyConfig, error) {
	decoded, err := decodeBase64Flexible(rest)
	if err != nil {
		return domain.ProxyConfig{}, fmt.Errorf("%w: ss payload", ErrBase64Decode)
	}
	text := string(decoded)
	at := strings.LastIndex(text, "@")
	if at == -1 {
		return domain.ProxyConfig{}, fmt.Errorf("%w: ss payload missing '@'", ErrMalformedURI)
	}
	method, password, found := strings.Cut(text[:at], ":")
	if !found {
		return domain.ProxyConfig{}, fmt.Errorf("%w: ss payload missing method:password", ErrMalformedURI)
	}
	return shadowsocksConfig(method, password, text[at+1:], name)
}

func shadowsocksConfig(method, password, hostPart, name string) (domain.ProxyConfig, error) {
	host, portStr, err := splitHostPort(hostPart)
	if err != nil {
		return domain.ProxyConfig{}, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	if host == "" {
		return domain.ProxyConfig{}, fmt.Errorf("%w: ss link missing host", ErrMalformedURI)
	}
	if portStr == "" {
		return domain.ProxyConfig{}, fmt.Errorf("%w: ss link missing port", ErrMalformedURI)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return domain.ProxyConfig{}, err
	}
	if name == "" {
		name = defaultName("Shadowsocks", host)
	}

	return domain.ProxyConfig{
		Name:     name,
		Protocol: domain.ProtocolShadowsocks,
		Server:   host,
		Port:     port,
		Password: password,
		Method:   method,
	}, nil
}

// parseTrojan 解析 Trojan 链接
// 格式: trojan://password@host:port?sni=xxx#名称；Trojan 总是走 TLS
func parseTrojan(link string) (domain.ProxyConfig, error) {
	rest, name := splitFragment(strings.TrimPrefix(link, "trojan://"))
	rest, query := splitQuery(rest)

	at := strings.LastIndex(rest, "@")
	if at == -1 {
		return domain.ProxyConfig{}, fmt.Errorf("%w: trojan link missing '@'", ErrMalformedURI)
	}
	password := rest[:at]
	if decoded, err := url.QueryUnescape(password); err == nil {
		password = decoded
	}

	host, portStr, err := splitHostPort(trimPathSuffix(rest[at+1:]))
	if err != nil {
		return domain.ProxyConfig{}, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	if host == "" {
		return domain.ProxyConfig{}, fmt.Errorf("%w: trojan link missing host", ErrMalformedURI)
	}
	if portStr == "" {
		return domain.ProxyConfig{}, fmt.Errorf("%w: trojan link missing port", ErrMalformedURI)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return domain.ProxyConfig{}, err
	}

	sni := query.Get("sni")
	if sni == "" {
		sni = query.Get("host")
	}
	if sni == "" {
		sni = query.Get("peer")
	}
	if name == "" {
		name = defaultName("Trojan", host)
	}

	return domain.ProxyConfig{
		Name:      name,
		Protocol:  domain.ProtocolTrojan,
		Server:    host,
		Port:      port,
		Password:  password,
		TLS:       true,
		SNI:       sni,
		Transport: query.Get("type"),
	}, nil
}

// parseSOCKS 解析 SOCKS5 链接
// 格式: socks5://[user:pass@]host[:port]#名称；端口缺省 1080
func parseSOCKS(link string) (domain.ProxyConfig, error) {
	rest := strings.TrimPrefix(link, "socks5://")
	rest = strings.TrimPrefix(rest, "socks://")
	rest, name := splitFragment(rest)
	rest, _ = splitQuery(rest)

	var username, password string
	if at := strings.LastIndex(rest, "@"); at != -1 {
		username, password = splitUserinfo(rest[:at])
		rest = rest[at+1:]
	}

	host, portStr, err := splitHostPort(trimPathSuffix(rest))
	if err != nil {
		return domain.ProxyConfig{}, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	if host == "" {
		return domain.ProxyConfig{}, fmt.Errorf("%w: socks5 link missing host", ErrMalformedURI)
	}
	port := 1080
	if portStr != "" {
		port, err = parsePort(portStr)
		if err != nil {
			return domain.ProxyConfig{}, err
		}
	}
	if name == "" {
		name = defaultName("SOCKS5", host)
	}

	return domain.ProxyConfig{
		Name:     name,
		Protocol: domain.ProtocolSOCKS5,
		Server:   host,
		Port:     port,
		Username: username,
		Password: password,
	}, nil
}

// parseHTTP 解析 HTTP/HTTPS 代理链接
// 端口缺省：http 8080，https 443；TLS 由 scheme 决定
func parseHTTP(link string) (domain.ProxyConfig, error) {
	protocol := domain.ProtocolHTTP
	label := "HTTP"
	defaultPort := 8080
	rest := link
	if strings.HasPrefix(link, "https://") {
		protocol = domain.ProtocolHTTPS
		label = "HTTPS"
		defaultPort = 443
		rest = strings.TrimPrefix(rest, "https://")
	} else {
		rest = strings.TrimPrefix(rest, "http://")
	}

	rest, name := splitFragment(rest)
	rest, _ = splitQuery(rest)

	var username, password string
	if at := strings.LastIndex(rest, "@"); at != -1 {
		username, password = splitUserinfo(rest[:at])
		rest = rest[at+1:]
	}

	host, portStr, err := splitHostPort(trimPathSuffix(rest))
	if err != nil {
		return domain.ProxyConfig{}, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	if host == "" {
		return domain.ProxyConfig{}, fmt.Errorf("%w: http link missing host", ErrMalformedURI)
	}
	port := defaultPort
	if portStr != "" {
		port, err = parsePort(portStr)
		if err != nil {
			return domain.ProxyConfig{}, err
		}
	}
	if name == "" {
		name = defaultName(label, host)
	}

	return domain.ProxyConfig{
		Name:     name,
		Protocol: protocol,
		Server:   host,
		Port:     port,
		Username: username,
		Password: password,
		TLS:      protocol == domain.ProtocolHTTPS,
	}, nil
}

// ========== 通用切分辅助 ==========

// splitFragment 分离 #fragment 并做 URL 解码（fragment 作为显示名称）
func splitFragment(s string) (string, string) {
	idx := strings.LastIndex(s, "#")
	if idx == -1 {
		return s, ""
	}
	name := s[idx+1:]
	if decoded, err := url.QueryUnescape(name); err == nil {
		name = decoded
	}
	return s[:idx], strings.TrimSpace(name)
}

// splitQuery 分离 ?query；查询串解析失败按空参数处理，不阻断解析
func splitQuery(s string) (string, url.Values) {
	idx := strings.Index(s, "?")
	if idx == -1 {
		return s, url.Values{}
	}
	query, err := url.ParseQuery(s[idx+1:])
	if err != nil {
		query = url.Values{}
	}
	return s[:idx], query
}

// splitUserinfo 切分 user[:pass] 并做 URL 解码
func splitUserinfo(userinfo string) (string, string) {
	user, pass, _ := strings.Cut(userinfo, ":")
	if decoded, err := url.QueryUnescape(user); err == nil {
		user = decoded
	}
	if decoded, err := url.QueryUnescape(pass); err == nil {
		pass = decoded
	}
	return user, pass
}

func splitHostPort(hostPort string) (string, string, error) {
	// 处理 IPv6 地址
	if strings.HasPrefix(hostPort, "[") {
		end := strings.Index(hostPort, "]")
		if end == -1 {
			return "", "", errors.New("invalid IPv6 address")
		}
		host := hostPort[1:end]
		if len(hostPort) > end+2 && hostPort[end+1] == ':' {
			return host, hostPort[end+2:], nil
		}
		return host, "", nil
	}

	// 普通 host:port
	idx := strings.LastIndex(hostPort, ":")
	if idx == -1 {
		return hostPort, "", nil
	}
	return hostPort[:idx], hostPort[idx+1:], nil
}

// trimPathSuffix 去掉 authority 之后的路径部分
func trimPathSuffix(s string) string {
	if idx := strings.Index(s, "/"); idx != -1 {
		return s[:idx]
	}
	return s
}

// parsePort 解析端口令牌；非数字或越界返回字段错误
func parsePort(portStr string) (int, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid port %q", ErrFieldValidation, portStr)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: port %d out of range", ErrFieldValidation, port)
	}
	return port, nil
}

// decodeBase64Flexible 灵活解码 base64（自动补齐 padding，兼容 URL-safe 变体）
func decodeBase64Flexible(value string) ([]byte, error) {
	switch len(value) % 4 {
	case 2:
		value += "=="
	case 3:
		value += "="
	}
	if data, err := base64.StdEncoding.DecodeString(value); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(value)
}

// defaultName 缺省显示名称：协议标签 + 主机
func defaultName(label, host string) string {
	return label + " " + host
}
