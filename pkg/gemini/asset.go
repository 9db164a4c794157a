package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

const defaultVideoMimeType = "video/mp4"

// Asset is a downloaded clip.
type Asset struct {
	Data     []byte
	MimeType string
}

// FetchAsset downloads the bytes behind a generated asset URI, authorising with the key query parameter.
func (c *Client) FetchAsset(ctx context.Context, uri string) (*Asset, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, apperrors.ErrGenerationNoAsset
	}
	key := ""
	if c.keys != nil {
		key = strings.TrimSpace(c.keys.Key())
	}

	req := c.http.R().SetContext(ctx)
	if key != "" {
		req.SetQueryParam("key", key)
	}
	resp, err := req.Get(uri)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDownloadFailed, apperrors.ErrDownloadFailed.Message, err)
	}
	if !resp.IsSuccess() {
		log.GetLogger().Warn("asset download rejected", zap.Int("status", resp.StatusCode()))
		return nil, apperrors.Wrap(apperrors.CodeDownloadFailed, apperrors.ErrDownloadFailed.Message,
			fmt.Errorf("status %d", resp.StatusCode()))
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, apperrors.WrapWithDetail(apperrors.CodeDownloadFailed, apperrors.ErrDownloadFailed.Message, "empty body", nil)
	}

	mimeType := resp.Header().Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "video/") {
		mimeType = defaultVideoMimeType
	}
	return &Asset{Data: body, MimeType: mimeType}, nil
}
