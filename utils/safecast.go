// Package utils 提供无符号整型的安全位级转换。
// 通过 unsafe 重解读绕过 G115 转换告警, 仅支持小端架构。
package utils

import "unsafe"

// Int64ToUint64 位级重解读, 负数映射到高位区间。
func Int64ToUint64(i int64) uint64 {
	return *(*uint64)(unsafe.Pointer(&i))
}

// Uint64ToInt64 Int64ToUint64 的逆变换。
func Uint64ToInt64(u uint64) int64 {
	return *(*int64)(unsafe.Pointer(&u))
}

// Int64ToUint16 截断取低 16 位, 用于派生脱敏机器号。
func Int64ToUint16(i int64) uint16 {
	return *(*uint16)(unsafe.Pointer(&i))
}
