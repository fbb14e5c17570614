package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrPresignNotSupported 本地驱动不支持签名地址。
var ErrPresignNotSupported = errors.New("presigned url not supported by local storage")

// LocalStorage 实现了 Storage 接口，将对象落在本地目录。
// 单机部署或测试环境使用, 对象名中的路径分隔符会映射为子目录。
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage 构造本地目录存储驱动, 目录不存在时自动创建。
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, errors.New("local storage base dir is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage dir: %w", err)
	}

	slog.Info("local storage initialized", "dir", baseDir)

	return &LocalStorage{baseDir: baseDir}, nil
}

// objectPath 将对象名映射为本地路径, 拒绝越出根目录的对象名。
func (s *LocalStorage) objectPath(objectName string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(objectName))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object name: %q", objectName)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

// Upload 将数据流写入本地文件。
func (s *LocalStorage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	if s == nil {
		return errors.New("local storage is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.objectPath(objectName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create object file: %w", err)
	}

	_, copyErr := io.Copy(f, reader)
	closeErr := f.Close()
	if copyErr != nil {
		return fmt.Errorf("failed to write object: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close object file: %w", closeErr)
	}

	slog.Debug("local storage upload successful", "object", objectName, "size", size, "content_type", contentType)
	return nil
}

// Download 打开本地对象文件。
func (s *LocalStorage) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if s == nil {
		return nil, errors.New("local storage is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.objectPath(objectName)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// GetPresignedURL 本地驱动无法签发临时地址。
func (s *LocalStorage) GetPresignedURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", ErrPresignNotSupported
}

// Delete 删除本地对象文件。
func (s *LocalStorage) Delete(ctx context.Context, objectName string) error {
	if s == nil {
		return errors.New("local storage is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.objectPath(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists 检查对象是否存在.
func (s *LocalStorage) Exists(ctx context.Context, objectName string) (bool, error) {
	if s == nil {
		return false, errors.New("local storage is nil")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path, err := s.objectPath(objectName)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// --- 分片上传: 分片先写入 .parts 临时目录, 完成时按序拼接 ---

func (s *LocalStorage) partDir(objectName, uploadID string) (string, error) {
	path, err := s.objectPath(objectName)
	if err != nil {
		return "", err
	}
	return path + ".parts-" + uploadID, nil
}

func (s *LocalStorage) InitiateMultipartUpload(ctx context.Context, objectName, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	uploadID := fmt.Sprintf("%d", time.Now().UnixNano())
	dir, err := s.partDir(objectName, uploadID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to initiate multipart upload: %w", err)
	}

	slog.Debug("local multipart upload initiated", "object", objectName, "upload_id", uploadID, "content_type", contentType)
	return uploadID, nil
}

func (s *LocalStorage) UploadPart(ctx context.Context, objectName, uploadID string, partNumber int, reader io.Reader, partSize int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := s.partDir(objectName, uploadID)
	if err != nil {
		return "", err
	}

	partPath := filepath.Join(dir, fmt.Sprintf("%06d", partNumber))
	f, err := os.Create(partPath)
	if err != nil {
		return "", fmt.Errorf("failed to create part file: %w", err)
	}

	_, copyErr := io.CopyN(f, reader, partSize)
	if copyErr == io.EOF {
		copyErr = nil
	}
	closeErr := f.Close()
	if copyErr != nil {
		return "", fmt.Errorf("failed to upload part %d: %w", partNumber, copyErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to close part %d: %w", partNumber, closeErr)
	}

	return fmt.Sprintf("part-%06d", partNumber), nil
}

func (s *LocalStorage) CompleteMultipartUpload(ctx context.Context, objectName, uploadID string, parts []Part) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := s.partDir(objectName, uploadID)
	if err != nil {
		return err
	}
	path, err := s.objectPath(objectName)
	if err != nil {
		return err
	}

	sorted := make([]Part, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create object file: %w", err)
	}

	for _, p := range sorted {
		partPath := filepath.Join(dir, fmt.Sprintf("%06d", p.PartNumber))
		in, openErr := os.Open(partPath)
		if openErr != nil {
			out.Close()
			return fmt.Errorf("failed to open part %d: %w", p.PartNumber, openErr)
		}
		_, copyErr := io.Copy(out, in)
		in.Close()
		if copyErr != nil {
			out.Close()
			return fmt.Errorf("failed to merge part %d: %w", p.PartNumber, copyErr)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close object file: %w", err)
	}

	return os.RemoveAll(dir)
}

func (s *LocalStorage) AbortMultipartUpload(ctx context.Context, objectName, uploadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := s.partDir(objectName, uploadID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func (s *LocalStorage) Close() error {
	return nil
}
