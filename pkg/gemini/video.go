package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

// VideoOperation is the state of one long-running synthesis job.
// Once Done is set, exactly one of URI and Err is meaningful.
type VideoOperation struct {
	Name string
	Done bool
	URI  string
	Err  error

	raw *genai.GenerateVideosOperation
}

// SubmitVideo starts a synthesis job for one scene prompt.
func (c *Client) SubmitVideo(ctx context.Context, prompt string) (*VideoOperation, error) {
	b, _, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: c.numberOfVideos,
		Resolution:     c.resolution,
		AspectRatio:    c.aspectRatio,
	}
	op, err := b.GenerateVideos(ctx, c.videoModel, prompt, nil, cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeGenerationFailed, "Failed to start video generation", err)
	}
	log.GetLogger().Info("veo operation started", zap.String("model", c.videoModel), zap.String("operation", op.Name))
	return toVideoOperation(op), nil
}

// PollVideo re-queries a running job once.
func (c *Client) PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	if op == nil || op.raw == nil {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "Unknown video operation")
	}
	b, _, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	next, err := b.GetVideosOperation(ctx, op.raw, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeGenerationFailed, "Failed to poll video operation", err)
	}
	return toVideoOperation(next), nil
}

func toVideoOperation(op *genai.GenerateVideosOperation) *VideoOperation {
	if op == nil {
		return &VideoOperation{Done: true, Err: apperrors.ErrGenerationNoAsset}
	}
	out := &VideoOperation{Name: op.Name, Done: op.Done, raw: op}
	if !op.Done {
		return out
	}

	if len(op.Error) > 0 {
		detail, _ := json.Marshal(op.Error)
		out.Err = apperrors.WrapWithDetail(apperrors.CodeGenerationFailed, "Video generation failed",
			string(detail), fmt.Errorf("%v", op.Error["message"]))
		return out
	}
	resp := op.Response
	if resp != nil && resp.RAIMediaFilteredCount > 0 && len(resp.GeneratedVideos) == 0 {
		reasons := "unknown"
		if len(resp.RAIMediaFilteredReasons) > 0 {
			reasons = strings.Join(resp.RAIMediaFilteredReasons, ", ")
		}
		out.Err = apperrors.WrapWithDetail(apperrors.CodeGenerationNoAsset, "Video blocked by safety filters", reasons, nil)
		return out
	}
	if resp == nil || len(resp.GeneratedVideos) == 0 || resp.GeneratedVideos[0] == nil ||
		resp.GeneratedVideos[0].Video == nil || resp.GeneratedVideos[0].Video.URI == "" {
		out.Err = apperrors.ErrGenerationNoAsset
		return out
	}
	out.URI = resp.GeneratedVideos[0].Video.URI
	return out
}
