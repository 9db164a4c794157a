package openai

import (
	"context"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"veo-director/config"
)

// chatCompleter is the subset of the go-openai client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	client       chatCompleter
	model        string
	sceneSeconds int
}

func NewClient(cfg config.OpenaiCompatibleConfig, sceneSeconds int) *Client {
	clientCfg := openai.DefaultConfig(cfg.ApiKey)
	if cfg.BaseUrl != "" {
		clientCfg.BaseURL = cfg.BaseUrl
	}
	// No client timeout: reasoning models can take minutes per storyboard.
	clientCfg.HTTPClient = &http.Client{Transport: &http.Transport{Proxy: http.ProxyFromEnvironment}}

	if sceneSeconds <= 0 {
		sceneSeconds = 8
	}
	return &Client{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		sceneSeconds: sceneSeconds,
	}
}
