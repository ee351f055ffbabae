package share

import "errors"

// 解析错误分类。所有错误都是可恢复的：批量导入在单条链接边界捕获，
// 失败的行不会中断其余行的处理。
var (
	// ErrUnsupportedScheme 未知的链接 scheme
	ErrUnsupportedScheme = errors.New("unsupported share link scheme")

	// ErrMalformedURI 链接结构不完整（缺 '@'、缺 host、缺 port 等）
	ErrMalformedURI = errors.New("malformed share link")

	// ErrBase64Decode base64 载荷无法解码
	ErrBase64Decode = errors.New("invalid base64 payload")

	// ErrJSONDecode JSON 载荷无法解码（vmess）
	ErrJSONDecode = errors.New("invalid json payload")

	// ErrFieldValidation 字段取值非法（端口越界、非数字等）
	ErrFieldValidation = errors.New("invalid field value")
)
