package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint 计算原始报文的 SHA256 指纹并返回十六进制字符串。
// 存储层用它做重复摄取判定与完整性核对。
func Fingerprint(data string) string {
	h := sha256.New()
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
