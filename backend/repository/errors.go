package repository

import "errors"

// 通用仓储错误
var (
	// ErrNotFound 实体不存在
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists 实体已存在
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidID ID 无效
	ErrInvalidID = errors.New("invalid entity ID")

	// ErrInvalidData 数据无效
	ErrInvalidData = errors.New("invalid entity data")
)

// 代理记录相关错误
var (
	ErrProxyNotFound = errors.New("proxy not found")
)

// 订阅相关错误
var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
