package storage

import (
	"fmt"

	"github.com/wyfcoding/fixmonitor/config"
)

// NewFromConfig 根据配置选择对象存储驱动。
// backend 为空表示未启用, 返回 nil 存储。
func NewFromConfig(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "local":
		return NewLocalStorage(cfg.LocalDir)
	case "minio":
		return NewMinIOClient(cfg.Minio.Endpoint, cfg.Minio.AccessKeyID, cfg.Minio.SecretAccessKey, cfg.Minio.BucketName, cfg.Minio.UseSSL)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.Backend)
	}
}
