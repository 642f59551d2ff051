package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/codenberg/socialflow/configs"
	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/internal/repository"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MediaService uploads post media to R2 and records an asset row. The
// returned public URLs become the post's ordered media list.
type MediaService struct {
	config cfg.Config
	ma     repository.MediaAssetRepository
}

func NewMediaService(cfg cfg.Config, ma repository.MediaAssetRepository) *MediaService {
	return &MediaService{config: cfg, ma: ma}
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

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
}

// UploadFiles validates, stores, and records every file, returning public
// URLs in input order.
func (m *MediaService) UploadFiles(ctx context.Context, userID int64, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))

	for _, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening file: %w", err)
		}

		fileBytes, err := io.ReadAll(fileContent)
		fileContent.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return nil, fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
			return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		fileURL, err := m.saveFile(ctx, userID, fileType.MIME.Value, fileBytes)
		if err != nil {
			return nil, fmt.Errorf("error uploading file: %w", err)
		}
		urls = append(urls, fileURL)
	}

	return urls, nil
}

func (m *MediaService) saveFile(ctx context.Context, userID int64, fileType string, file []byte) (string, error) {
	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	client, err := m.r2Client(ctx)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(m.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(fileType),
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	fileURL := fmt.Sprintf("%s/%s", m.config.R2.PublicURL, key)

	asset := models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: fileType,
		FileSize: int64(len(file)),
		FileURL:  fileURL,
	}
	if _, err := m.ma.Create(ctx, nil, &asset); err != nil {
		return "", err
	}

	return fileURL, nil
}
