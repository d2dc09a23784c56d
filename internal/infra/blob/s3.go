package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

var ErrTooLarge = errors.New("file exceeds upload limit")

type S3Deps struct {
	Client    *s3.Client
	Uploader  *manager.Uploader
	Presigner *s3.PresignClient
	Bucket    string
	MaxBytes  int64
}

type UploadedMeta struct {
	Bucket string `json:"bucket"`
	S3Key  string `json:"s3_key"`
	ETag   string `json:"etag"`
	SHA256 string `json:"sha256"`
	MIME   string `json:"mime"`
	SizeB  int64  `json:"size_b"`
}

func NewS3(ctx context.Context, cfg *config.Config) (*S3Deps, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3.Region),
	}
	if cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		))
	}
	acfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Telemetry.Enabled {
		otelaws.AppendMiddlewares(&acfg.APIOptions)
	}

	// uploads go through the internal endpoint; presigned URLs must use the public one
	internal := cfg.S3.InternalEndpoint
	if internal == "" {
		internal = cfg.S3.Endpoint
	}
	client := s3.NewFromConfig(acfg, s3Options(internal, cfg.S3.UsePathStyle))
	presignBase := s3.NewFromConfig(acfg, s3Options(cfg.S3.Endpoint, cfg.S3.UsePathStyle))

	maxBytes := int64(cfg.S3.MaxUploadMB) << 20
	return &S3Deps{
		Client:    client,
		Uploader:  manager.NewUploader(client),
		Presigner: s3.NewPresignClient(presignBase),
		Bucket:    cfg.S3.Bucket,
		MaxBytes:  maxBytes,
	}, nil
}

func s3Options(endpoint string, pathStyle bool) func(*s3.Options) {
	return func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}
}

// ObjectKey builds "<prefix>/<uuid>-<sanitised filename>".
func ObjectKey(prefix, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == "/" {
		name = "file"
	}
	return strings.TrimSuffix(prefix, "/") + "/" + uuid.NewString() + "-" + name
}

// DetectMIME sniffs the content type of r and rewinds it.
func DetectMIME(r io.ReadSeeker) (string, error) {
	m, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return m.String(), nil
}

// UploadFormFile streams fh to prefix in the bucket, sniffing its MIME type.
func (u *S3Deps) UploadFormFile(ctx context.Context, prefix string, fh *multipart.FileHeader) (*UploadedMeta, error) {
	if u.MaxBytes > 0 && fh.Size > u.MaxBytes {
		return nil, ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mime, err := DetectMIME(f)
	if err != nil {
		return nil, fmt.Errorf("detect mime: %w", err)
	}

	key := ObjectKey(prefix, fh.Filename)
	h := sha256.New()
	out, err := u.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        io.TeeReader(f, h),
		ContentType: aws.String(mime),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	return &UploadedMeta{
		Bucket: u.Bucket,
		S3Key:  key,
		ETag:   strings.Trim(aws.ToString(out.ETag), `"`),
		SHA256: hex.EncodeToString(h.Sum(nil)),
		MIME:   mime,
		SizeB:  fh.Size,
	}, nil
}

func (u *S3Deps) PresignGet(ctx context.Context, key string, expire time.Duration) (string, error) {
	req, err := u.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expire))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
