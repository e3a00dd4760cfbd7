package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	cfg "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

// MediaService stores post media in Cloudflare R2 and hands back the public
// URL plus sniffed metadata. Platforms pull media from these URLs.
type MediaService struct {
	config cfg.Config
}

func NewMediaService(config cfg.Config) *MediaService {
	return &MediaService{config: config}
}

func (m *MediaService) r2Client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(m.config.R2.AccessKey, m.config.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", m.config.R2.AccountID))
	}), nil
}

// UploadMedia sniffs the real MIME type from the bytes (never trusting the
// client's filename), stores the object under an opaque key, and returns the
// media reference for attaching to a post.
func (m *MediaService) UploadMedia(ctx context.Context, file []byte) (*transfer.MediaInput, error) {
	kind, err := filetype.Match(file)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if kind == filetype.Unknown {
		return nil, fmt.Errorf("could not determine file type")
	}
	if !strings.HasPrefix(kind.MIME.Value, "image/") && !strings.HasPrefix(kind.MIME.Value, "video/") {
		return nil, fmt.Errorf("only image and video files can be attached")
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("media/%s.%s", id, kind.Extension)

	client, err := m.r2Client(ctx)
	if err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(m.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(kind.MIME.Value),
	}
	if _, err := client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	mime := kind.MIME.Value
	if mime == "image/jpg" {
		mime = "image/jpeg"
	}

	return &transfer.MediaInput{
		FileURL:  strings.TrimRight(m.config.R2.PublicURL, "/") + "/" + key,
		FileType: mime,
		FileSize: int64(len(file)),
	}, nil
}
