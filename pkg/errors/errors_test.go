package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	// Test without cause
	err := New(CodeVideoTooLarge, "Test error")
	assert.Equal(t, "[1100] Test error", err.Error())

	// Test with cause
	cause := errors.New("underlying error")
	errWithCause := Wrap(CodeDownloadFailed, "Test error", cause)
	assert.Contains(t, errWithCause.Error(), "underlying error")
	assert.Contains(t, errWithCause.Error(), "1402")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(CodeAnalysisParse, "Analysis parse failed", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestIs(t *testing.T) {
	err := New(CodeGenerationNoAsset, "no asset")

	assert.True(t, Is(err, CodeGenerationNoAsset))
	assert.False(t, Is(err, CodeDownloadFailed))

	regularErr := errors.New("regular error")
	assert.False(t, Is(regularErr, CodeGenerationNoAsset))

	// Wrapped by fmt.Errorf still matches
	assert.True(t, Is(errors.Join(errors.New("ctx"), err), CodeGenerationNoAsset))
}

func TestGetCode(t *testing.T) {
	appErr := New(CodeScriptEmpty, "empty")
	assert.Equal(t, CodeScriptEmpty, GetCode(appErr))

	regularErr := errors.New("regular error")
	assert.Equal(t, CodeUnknown, GetCode(regularErr))
}

func TestGetMessage(t *testing.T) {
	appErr := New(CodeFileNotFound, "File not found")
	assert.Equal(t, "File not found", GetMessage(appErr))

	regularErr := errors.New("regular error message")
	assert.Equal(t, "regular error message", GetMessage(regularErr))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Analysis produced no result", UserMessage(ErrAnalysisEmpty))
	assert.Equal(t, "Download failed: status 403",
		UserMessage(Wrap(CodeDownloadFailed, "Download failed", errors.New("status 403"))))
	assert.Equal(t, "Blocked: safety filter",
		UserMessage(WrapWithDetail(CodeGenerationNoAsset, "Blocked", "safety filter", nil)))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}

func TestWrapWithDetail(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapWithDetail(CodeDownloadFailed, "Download failed", "URI: https://example.com/v.mp4", cause)

	assert.Equal(t, CodeDownloadFailed, err.Code)
	assert.Equal(t, "Download failed", err.Message)
	assert.Equal(t, "URI: https://example.com/v.mp4", err.Detail)
	assert.Equal(t, cause, err.Cause)
}

func TestPredefinedErrors(t *testing.T) {
	assert.Equal(t, CodeInvalidParams, ErrInvalidParams.Code)
	assert.Equal(t, CodeAnalysisEmpty, ErrAnalysisEmpty.Code)
	assert.Equal(t, CodeScriptEmpty, ErrScriptEmpty.Code)
	assert.Equal(t, CodeGenerationNoAsset, ErrGenerationNoAsset.Code)
	assert.Equal(t, CodeDownloadFailed, ErrDownloadFailed.Code)
	assert.Equal(t, CodeDBError, ErrDBError.Code)
}
