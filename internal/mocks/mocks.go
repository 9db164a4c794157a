// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"veo-director/internal/types"
	"veo-director/pkg/gemini"
)

// MockAnalyzer is a mock implementation of service.Analyzer
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) AnalyzeVideo(ctx context.Context, video []byte, mimeType string) (*types.VideoAnalysis, error) {
	args := m.Called(ctx, video, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.VideoAnalysis), args.Error(1)
}

// MockScripter is a mock implementation of service.Scripter
type MockScripter struct {
	mock.Mock
}

func (m *MockScripter) GenerateScript(ctx context.Context, analysis *types.VideoAnalysis, style types.Style) ([]types.SceneDescriptor, error) {
	args := m.Called(ctx, analysis, style)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SceneDescriptor), args.Error(1)
}

// MockSynthesizer is a mock implementation of orchestrator.Synthesizer
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) SubmitVideo(ctx context.Context, prompt string) (*gemini.VideoOperation, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.VideoOperation), args.Error(1)
}

func (m *MockSynthesizer) PollVideo(ctx context.Context, op *gemini.VideoOperation) (*gemini.VideoOperation, error) {
	args := m.Called(ctx, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.VideoOperation), args.Error(1)
}

func (m *MockSynthesizer) FetchAsset(ctx context.Context, uri string) (*gemini.Asset, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.Asset), args.Error(1)
}

// MockCredentialHost is a mock implementation of orchestrator.CredentialHost
type MockCredentialHost struct {
	mock.Mock
}

func (m *MockCredentialHost) HasSelectedKey(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialHost) OpenSelectKey(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
