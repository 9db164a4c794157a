package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

// storyboard wraps the scene list because structured outputs must be objects.
type storyboard struct {
	Scenes []types.SceneDescriptor `json:"scenes"`
}

func storyboardSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"scenes": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"timestamp":  {Type: jsonschema.String, Description: "e.g. 00:00 - 00:08"},
						"veo_prompt": {Type: jsonschema.String, Description: "The English prompt for Veo 3"},
					},
					Required:             []string{"timestamp", "veo_prompt"},
					AdditionalProperties: false,
				},
			},
		},
		Required:             []string{"scenes"},
		AdditionalProperties: false,
	}
}

// GenerateScript asks an OpenAI-compatible chat model for the storyboard.
func (c *Client) GenerateScript(ctx context.Context, analysis *types.VideoAnalysis, style types.Style) ([]types.SceneDescriptor, error) {
	if analysis == nil {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "Analysis is required")
	}
	if !style.Valid() {
		return nil, apperrors.ErrInvalidStyle
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScriptFailed, "Failed to encode analysis", err)
	}

	schema := storyboardSchema()
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(types.ScriptingInstruction, c.sceneSeconds)},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(types.ScriptingPrompt, payload, style.Label(), c.sceneSeconds)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "storyboard",
				Schema: &schema,
				Strict: true,
			},
		},
	}

	log.GetLogger().Info("openai scripting request", zap.String("model", c.model), zap.String("style", string(style)))

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScriptFailed, "Script request failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.ErrScriptEmpty
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, apperrors.ErrScriptEmpty
	}

	// Structured output returns a bare document; a fenced or chatty reply fails here.
	var board storyboard
	if err = json.Unmarshal([]byte(text), &board); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScriptParse, "Failed to parse script", err)
	}
	return board.Scenes, nil
}
