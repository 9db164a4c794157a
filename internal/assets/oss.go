package assets

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"veo-director/config"
	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

type objectAPI interface {
	put(ctx context.Context, key string, data []byte, mimeType string) error
	remove(ctx context.Context, key string) error
	list(ctx context.Context, prefix string) ([]string, error)
	presign(ctx context.Context, key string, expires time.Duration) (string, error)
}

type ossObjects struct {
	client *oss.Client
	bucket string
}

func (o ossObjects) put(ctx context.Context, key string, data []byte, mimeType string) error {
	_, err := o.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket:      oss.Ptr(o.bucket),
		Key:         oss.Ptr(key),
		ContentType: oss.Ptr(mimeType),
		Body:        bytes.NewReader(data),
	})
	return err
}

func (o ossObjects) remove(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, &oss.DeleteObjectRequest{
		Bucket: oss.Ptr(o.bucket),
		Key:    oss.Ptr(key),
	})
	return err
}

func (o ossObjects) list(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := o.client.NewListObjectsV2Paginator(&oss.ListObjectsV2Request{
		Bucket: oss.Ptr(o.bucket),
		Prefix: oss.Ptr(prefix),
	})
	for p.HasNext() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, oss.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (o ossObjects) presign(ctx context.Context, key string, expires time.Duration) (string, error) {
	result, err := o.client.Presign(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(o.bucket),
		Key:    oss.Ptr(key),
	}, oss.PresignExpires(expires))
	if err != nil {
		return "", err
	}
	return result.URL, nil
}

// OSSStore keeps clips in an Alibaba Cloud OSS bucket and hands out presigned URLs.
type OSSStore struct {
	objects objectAPI
	prefix  string
	expires time.Duration
}

func NewOSSStore(cfg config.OssConfig) *OSSStore {
	ossCfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyId, cfg.AccessKeySecret)).
		WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		ossCfg = ossCfg.WithEndpoint(cfg.Endpoint)
	}
	expires := time.Duration(cfg.PresignMinutes) * time.Minute
	if expires <= 0 {
		expires = time.Hour
	}
	return &OSSStore{
		objects: ossObjects{client: oss.NewClient(ossCfg), bucket: cfg.Bucket},
		prefix:  strings.Trim(cfg.Prefix, "/"),
		expires: expires,
	}
}

func (s *OSSStore) sessionPrefix(sessionID string) string {
	return path.Join(s.prefix, sessionID) + "/"
}

func (s *OSSStore) Put(ctx context.Context, sessionID, sceneID string, data []byte, mimeType string) (*types.ResourceHandle, error) {
	if err := checkIDs(sessionID, sceneID); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	key := s.sessionPrefix(sessionID) + sceneID + "-" + id[:8] + extensionFor(mimeType)
	if err := s.objects.put(ctx, key, data, mimeType); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "Failed to upload clip", err)
	}
	url, err := s.objects.presign(ctx, key, s.expires)
	if err != nil {
		log.GetLogger().Warn("presign clip failed", zap.String("key", key), zap.Error(err))
	}
	return &types.ResourceHandle{
		ID:        id,
		Backend:   BackendOSS,
		Key:       key,
		URL:       url,
		Size:      int64(len(data)),
		MimeType:  mimeType,
		CreatedAt: time.Now(),
	}, nil
}

// URL presigns again; the URL stored on the handle may have expired.
func (s *OSSStore) URL(ctx context.Context, handle types.ResourceHandle) (string, error) {
	return s.objects.presign(ctx, handle.Key, s.expires)
}

func (s *OSSStore) Release(ctx context.Context, handle types.ResourceHandle) error {
	if handle.Key == "" {
		return nil
	}
	return s.objects.remove(ctx, handle.Key)
}

func (s *OSSStore) ReleaseSession(ctx context.Context, sessionID string) error {
	if checkIDs(sessionID) != nil {
		return nil
	}
	keys, err := s.objects.list(ctx, s.sessionPrefix(sessionID))
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err = s.objects.remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
