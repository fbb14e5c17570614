// Package storage 提供上传原始报文文件的对象存储抽象, 支持本地目录与 MinIO 两种驱动。
package storage

import (
	"context"
	"io"
	"time"
)

// Storage 对象存储通用接口。批量上传的原始 FIX 文件经此落盘归档。
type Storage interface {
	// Upload 单次上传对象。
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error

	// Download 下载对象。
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)

	// GetPresignedURL 获取带签名的临时访问地址。
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)

	// Delete 删除对象。
	Delete(ctx context.Context, objectName string) error

	// 大文件走分片上传。
	InitiateMultipartUpload(ctx context.Context, objectName string, contentType string) (string, error)
	UploadPart(ctx context.Context, objectName, uploadID string, partNumber int, reader io.Reader, partSize int64) (string, error)
	CompleteMultipartUpload(ctx context.Context, objectName, uploadID string, parts []Part) error
	AbortMultipartUpload(ctx context.Context, objectName, uploadID string) error
}

// Part 已上传分片的编号与校验标识。
type Part struct {
	PartNumber int
	ETag       string
}
