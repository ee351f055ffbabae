package share

import (
	"strings"

	"isolate/backend/domain"
)

// Entry 批量导入得到的一条候选记录。
// Selected 默认为 true；前端确认界面据此预勾选。
type Entry struct {
	Config   domain.ProxyConfig `json:"config"`
	Warnings []Warning          `json:"warnings,omitempty"`
	Selected bool               `json:"selected"`
}

// LineError 单行解析失败记录
type LineError struct {
	Line string `json:"line"`
	Err  string `json:"error"`
}

// ImportResult 批量导入结果。
// 每一条有效输入行恰好落入 Entries 或 Failures 之一，两边数量之和
// 等于非空非注释的输入行数。
type ImportResult struct {
	Entries  []Entry     `json:"entries"`
	Failures []LineError `json:"failures"`
}

// ImportPayload 解析订阅正文为候选记录列表。
// 正文可能是整体 base64 编码（常见订阅约定），也可能是纯文本的
// 每行一条链接；# 与 // 开头的注释行跳过。单行失败不会中断其余行。
func ImportPayload(payload string) ImportResult {
	text := strings.TrimSpace(payload)
	if text == "" {
		return ImportResult{}
	}

	// 清理换行符后尝试整体 base64 解码；解码结果像链接列表才采用
	cleaned := strings.ReplaceAll(strings.ReplaceAll(text, "\r", ""), "\n", "")
	if decoded, err := decodeBase64Flexible(cleaned); err == nil {
		decodedText := strings.TrimSpace(string(decoded))
		if decodedText != "" && isLikelyShareLinks(decodedText) {
			text = decodedText
		}
	}

	var result ImportResult
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		res, err := Parse(line)
		if err != nil {
			result.Failures = append(result.Failures, LineError{Line: line, Err: err.Error()})
			continue
		}
		if res.IsZero() {
			continue
		}
		result.Entries = append(result.Entries, Entry{
			Config:   res.Config,
			Warnings: res.Warnings,
			Selected: true,
		})
	}
	return result
}

// isShareLink 检查是否是分享链接
func isShareLink(line string) bool {
	return strings.HasPrefix(line, "vless://") ||
		strings.HasPrefix(line, "vmess://") ||
		strings.HasPrefix(line, "ss://") ||
		strings.HasPrefix(line, "trojan://") ||
		strings.HasPrefix(line, "socks5://") ||
		strings.HasPrefix(line, "socks://") ||
		strings.HasPrefix(line, "http://") ||
		strings.HasPrefix(line, "https://")
}

// isLikelyShareLinks 检查解码后的内容是否像分享链接列表
func isLikelyShareLinks(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if isShareLink(line) {
			return true
		}
	}
	return false
}

var subscriptionInfoKeywords = []string{
	"剩余", "流量", "到期", "过期", "有效期",
	"升级", "版本", "客户端", "官网", "教程",
	"traffic", "expire", "expired", "upgrade", "version",
}

// FilterInfoEntries 过滤订阅中的“提示节点”。
// 机场常在列表头部塞入指向本地回环的假记录展示剩余流量等信息，
// 按地址 + 名称关键字识别并剔除。
func FilterInfoEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if isLikelyInfoEntry(entry.Config) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func isLikelyInfoEntry(cfg domain.ProxyConfig) bool {
	addr := strings.ToLower(strings.TrimSpace(cfg.Server))
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if addr == "" || name == "" {
		return false
	}

	// 提示节点通常指向本地回环端口（如 127.0.0.1:1080）
	isLoopback := addr == "127.0.0.1" || addr == "localhost" || addr == "0.0.0.0"
	if !isLoopback {
		return false
	}
	if cfg.Port != 1080 && cfg.Port != 0 {
		return false
	}

	for _, kw := range subscriptionInfoKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
