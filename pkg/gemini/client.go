package gemini

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"google.golang.org/genai"

	"veo-director/config"
	apperrors "veo-director/pkg/errors"
)

// KeySource hands out the API key for each remote call.
// The key is read per call so that a key selected at runtime takes effect immediately.
type KeySource interface {
	Key() string
}

// StaticKey is a KeySource backed by a fixed key.
type StaticKey string

func (k StaticKey) Key() string { return string(k) }

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type videoGenerator interface {
	GenerateVideos(ctx context.Context, model string, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
}

type operationGetter interface {
	GetVideosOperation(ctx context.Context, operation *genai.GenerateVideosOperation, config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error)
}

type backend interface {
	contentGenerator
	videoGenerator
	operationGetter
}

type backendFactory func(ctx context.Context, apiKey, baseURL string) (backend, error)

type genaiBackend struct {
	models     *genai.Models
	operations *genai.Operations
}

func (b genaiBackend) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return b.models.GenerateContent(ctx, model, contents, config)
}

func (b genaiBackend) GenerateVideos(ctx context.Context, model string, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return b.models.GenerateVideos(ctx, model, prompt, image, config)
}

func (b genaiBackend) GetVideosOperation(ctx context.Context, operation *genai.GenerateVideosOperation, config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error) {
	return b.operations.GetVideosOperation(ctx, operation, config)
}

func newGenaiBackend(ctx context.Context, apiKey, baseURL string) (backend, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return genaiBackend{models: client.Models, operations: client.Operations}, nil
}

// Client talks to the Gemini analysis and scripting models and the Veo synthesis model.
type Client struct {
	keys           KeySource
	baseURL        string
	analysisModel  string
	scriptingModel string
	videoModel     string
	resolution     string
	aspectRatio    string
	numberOfVideos int32
	sceneSeconds   int

	newBackend backendFactory
	http       *resty.Client
}

func NewClient(keys KeySource, cfg config.GeminiConfig, sceneSeconds int) *Client {
	if sceneSeconds <= 0 {
		sceneSeconds = 8
	}
	numberOfVideos := int32(cfg.NumberOfVideos)
	if numberOfVideos <= 0 {
		numberOfVideos = 1
	}
	return &Client{
		keys:           keys,
		baseURL:        cfg.BaseUrl,
		analysisModel:  cfg.AnalysisModel,
		scriptingModel: cfg.ScriptingModel,
		videoModel:     cfg.VideoModel,
		resolution:     cfg.Resolution,
		aspectRatio:    cfg.AspectRatio,
		numberOfVideos: numberOfVideos,
		sceneSeconds:   sceneSeconds,
		newBackend:     newGenaiBackend,
		http:           resty.New().SetTimeout(5 * time.Minute),
	}
}

// connect builds a fresh backend with the current key.
func (c *Client) connect(ctx context.Context) (backend, string, error) {
	key := ""
	if c.keys != nil {
		key = strings.TrimSpace(c.keys.Key())
	}
	if key == "" {
		return nil, "", apperrors.New(apperrors.CodeCredentialMissing, "No API key selected")
	}
	b, err := c.newBackend(ctx, key, c.baseURL)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeUnknown, "Failed to create Gemini client", err)
	}
	return b, key, nil
}
