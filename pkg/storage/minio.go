package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/yyw2wyy/workload-system/config"
)

// ErrObjectNotFound 附件对象不存在
var ErrObjectNotFound = errors.New("附件不存在")

// MinIOStore 基于 MinIO 的附件存储
type MinIOStore struct {
	client    *minio.Client
	bucket    string
	region    string
	urlExpiry time.Duration
	logger    *zap.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool
}

// NewMinIOStore 创建 MinIO 客户端
// 启动时 MinIO 未就绪不会导致失败，首次读写时再确认 bucket
func NewMinIOStore(cfg *config.StorageConfig, logger *zap.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	s := &MinIOStore{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		urlExpiry: expiry,
		logger:    logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.ensureBucket(ctx); err != nil {
		logger.Warn("MinIO 暂未就绪，将在首次使用时重试",
			zap.String("endpoint", cfg.Endpoint),
			zap.String("bucket", cfg.Bucket),
			zap.Error(err),
		)
	} else {
		logger.Info("MinIO 连接成功",
			zap.String("endpoint", cfg.Endpoint),
			zap.String("bucket", cfg.Bucket),
			zap.Bool("ssl", cfg.UseSSL),
		)
	}

	return s, nil
}

func (s *MinIOStore) ensureBucket(ctx context.Context) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	if s.bucketEnsured {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查 bucket 失败: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("创建 bucket 失败: %w", err)
		}
		s.logger.Info("已创建附件 bucket", zap.String("bucket", s.bucket))
	}

	s.bucketEnsured = true
	return nil
}

// Store 上传附件，返回对象键
func (s *MinIOStore) Store(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := ObjectKey(time.Now(), filename)
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传附件失败: %w", err)
	}

	s.logger.Debug("附件已上传",
		zap.String("key", key),
		zap.String("etag", info.ETag),
		zap.Int64("size", size),
	)
	return key, nil
}

// Delete 删除附件，对象不存在视为成功
func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("删除附件失败: %w", err)
	}
	s.logger.Debug("附件已删除", zap.String("key", key))
	return nil
}

// URL 生成附件的临时下载地址
func (s *MinIOStore) URL(ctx context.Context, key string) (string, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", ErrObjectNotFound
		}
		return "", fmt.Errorf("查询附件失败: %w", err)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.urlExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成附件下载地址失败: %w", err)
	}
	return u.String(), nil
}

// Ping 健康检查
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// ObjectKey 生成附件对象键：attachments/年/月/uuid.扩展名
func ObjectKey(now time.Time, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 16 {
		ext = ""
	}
	return path.Join("attachments", fmt.Sprintf("%d/%02d", now.Year(), now.Month()), uuid.NewString()+ext)
}
