package storage

import (
	"context"
	"fmt"
	"instavision/config"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

const defaultPresignExpiry = 15 * time.Minute

// Store 头像等用户文件的对象存储，兼容 S3 协议
type Store struct {
	cfg      config.S3
	client   *s3.Client
	uploader *manager.Uploader
	now      func() time.Time
}

// New 按配置创建 S3 客户端；未配置 bucket 时返回 nil
func New(ctx context.Context, cfg config.S3) (*Store, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Store{
		cfg:      cfg,
		client:   client,
		uploader: manager.NewUploader(client),
		now:      time.Now,
	}, nil
}

// PresignedUpload 前端直传所需的信息
type PresignedUpload struct {
	UploadURL string            `json:"upload_url"`
	FileKey   string            `json:"file_key"`
	FileURL   string            `json:"file_url"`
	ExpiresAt time.Time         `json:"expires_at"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
}

// objectKey 生成 <prefix>/<dir>/<unix-nano><ext>
func (s *Store) objectKey(dir, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	name := fmt.Sprintf("%d%s", s.now().UnixNano(), ext)
	return strings.TrimLeft(path.Join(strings.Trim(s.cfg.Prefix, "/"), dir, name), "/")
}

// PublicURL 对象的访问地址
func (s *Store) PublicURL(key string) string {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(s.cfg.Endpoint, "/")
	}
	if base == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.Bucket, key)
	}
	if s.cfg.UsePathStyle && s.cfg.BaseURL == "" {
		return base + "/" + s.cfg.Bucket + "/" + key
	}
	return base + "/" + key
}

// PresignUpload 生成 PUT 预签名地址
func (s *Store) PresignUpload(ctx context.Context, dir, filename, contentType string) (*PresignedUpload, error) {
	if filename == "" {
		return nil, errors.New("filename is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := s.objectKey(dir, filename)

	req, err := s3.NewPresignClient(s.client).PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(defaultPresignExpiry))
	if err != nil {
		return nil, errors.Wrap(err, "presign put object")
	}

	headers := map[string]string{"Content-Type": contentType}
	for k, v := range req.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return &PresignedUpload{
		UploadURL: req.URL,
		FileKey:   key,
		FileURL:   s.PublicURL(key),
		ExpiresAt: s.now().Add(defaultPresignExpiry),
		Method:    req.Method,
		Headers:   headers,
	}, nil
}

// Upload 服务端中转上传，返回访问地址
func (s *Store) Upload(ctx context.Context, dir, filename, contentType string, body io.Reader) (string, error) {
	key := s.objectKey(dir, filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", errors.Wrap(err, "upload object")
	}
	return s.PublicURL(key), nil
}
