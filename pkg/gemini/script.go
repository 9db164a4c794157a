package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

// GenerateScript rewrites the analysis as a storyboard in the given style.
// Descriptor order is the order returned by the model.
func (c *Client) GenerateScript(ctx context.Context, analysis *types.VideoAnalysis, style types.Style) ([]types.SceneDescriptor, error) {
	if analysis == nil {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "Analysis is required")
	}
	if !style.Valid() {
		return nil, apperrors.ErrInvalidStyle
	}

	b, _, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScriptFailed, "Failed to encode analysis", err)
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(fmt.Sprintf(types.ScriptingInstruction, c.sceneSeconds), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    scriptSchema(),
	}
	prompt := fmt.Sprintf(types.ScriptingPrompt, payload, style.Label(), c.sceneSeconds)

	log.GetLogger().Info("gemini scripting request", zap.String("model", c.scriptingModel), zap.String("style", string(style)))

	resp, err := b.GenerateContent(ctx, c.scriptingModel, genai.Text(prompt), cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScriptFailed, "Script request failed", err)
	}
	text := responseText(resp)
	if text == "" {
		return nil, apperrors.ErrScriptEmpty
	}

	var descriptors []types.SceneDescriptor
	if err = json.Unmarshal([]byte(text), &descriptors); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScriptParse, "Failed to parse script", err)
	}
	return descriptors, nil
}
