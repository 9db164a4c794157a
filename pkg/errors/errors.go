// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeUnauthorized  = 1003
	CodeBusy          = 1004
	CodeCanceled      = 1005

	// Upload errors (1100-1199)
	CodeVideoTooLarge    = 1100
	CodeUnsupportedMedia = 1101
	CodeVideoMissing     = 1102

	// Analysis errors (1200-1299)
	CodeAnalysisFailed = 1200
	CodeAnalysisEmpty  = 1201
	CodeAnalysisParse  = 1202

	// Scripting errors (1300-1399)
	CodeScriptFailed = 1300
	CodeScriptEmpty  = 1301
	CodeScriptParse  = 1302
	CodeInvalidStyle = 1303

	// Synthesis errors (1400-1499)
	CodeGenerationFailed  = 1400
	CodeGenerationNoAsset = 1401
	CodeDownloadFailed    = 1402
	CodeGenerationTimeout = 1403
	CodeCredentialMissing = 1404

	// Storage errors (1500-1599)
	CodeDBError        = 1500
	CodeFileNotFound   = 1501
	CodeFileWriteError = 1502

	// Session errors (1600-1699)
	CodeSessionNotFound = 1600
	CodeSceneNotFound   = 1601
	CodeSessionClosed   = 1602
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// UserMessage is the text shown to a user: the message plus the underlying cause, if any.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			return appErr.Message + ": " + appErr.Cause.Error()
		}
		if appErr.Detail != "" {
			return appErr.Message + ": " + appErr.Detail
		}
		return appErr.Message
	}
	return err.Error()
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "Resource not found")
	ErrUnauthorized  = New(CodeUnauthorized, "Unauthorized")
	ErrBusy          = New(CodeBusy, "Another operation of this kind is already running")

	// Upload
	ErrUnsupportedMedia = New(CodeUnsupportedMedia, "Unsupported media type, please upload a video")
	ErrVideoMissing     = New(CodeVideoMissing, "No video uploaded")

	// Analysis
	ErrAnalysisEmpty = New(CodeAnalysisEmpty, "Analysis produced no result")

	// Scripting
	ErrScriptEmpty  = New(CodeScriptEmpty, "Script generation produced no result")
	ErrInvalidStyle = New(CodeInvalidStyle, "Unknown style")

	// Synthesis
	ErrGenerationNoAsset = New(CodeGenerationNoAsset, "Video generation produced no asset")
	ErrDownloadFailed    = New(CodeDownloadFailed, "Failed to download generated video content")

	// Storage
	ErrDBError      = New(CodeDBError, "Database error")
	ErrFileNotFound = New(CodeFileNotFound, "File not found")

	// Session
	ErrSessionNotFound = New(CodeSessionNotFound, "Session not found")
	ErrSceneNotFound   = New(CodeSceneNotFound, "Scene not found")
	ErrSessionClosed   = New(CodeSessionClosed, "Session closed")
)
