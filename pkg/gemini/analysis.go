package gemini

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

// AnalyzeVideo sends the clip inline and decodes the structured analysis.
// Size limits are enforced by the caller.
func (c *Client) AnalyzeVideo(ctx context.Context, video []byte, mimeType string) (*types.VideoAnalysis, error) {
	b, _, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(video, mimeType),
			genai.NewPartFromText(types.AnalysisPrompt),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(types.AnalysisInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    analysisSchema(),
	}

	log.GetLogger().Info("gemini analysis request",
		zap.String("model", c.analysisModel), zap.String("mime_type", mimeType), zap.Int("bytes", len(video)))

	resp, err := b.GenerateContent(ctx, c.analysisModel, contents, cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeAnalysisFailed, "Analysis request failed", err)
	}
	text := responseText(resp)
	if text == "" {
		return nil, apperrors.ErrAnalysisEmpty
	}

	var analysis types.VideoAnalysis
	if err = json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeAnalysisParse, "Failed to parse analysis", err)
	}
	return &analysis, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return strings.TrimSpace(resp.Text())
}
