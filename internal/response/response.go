package response

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "veo-director/pkg/errors"
)

const successMsg = "Success"

// Response is the standard API response structure
type Response struct {
	Error  int32  `json:"error"`            // Error code (0 = success)
	Msg    string `json:"msg"`              // Human-readable message
	Detail string `json:"detail,omitempty"` // Additional error details
	Data   any    `json:"data"`             // Response payload
}

// Success returns a success response with data
func Success(c *gin.Context, data any) {
	c.JSON(200, Response{
		Error: 0,
		Msg:   successMsg,
		Data:  data,
	})
}

// Error returns an error response with code and message
func Error(c *gin.Context, code int, msg string) {
	c.JSON(200, Response{
		Error: int32(code),
		Msg:   msg,
		Data:  nil,
	})
}

// FromError converts an error to a Response
// If the error is an AppError, it extracts code and message
// Otherwise, it uses CodeUnknown
func FromError(err error) Response {
	if err == nil {
		return Response{
			Error: 0,
			Msg:   successMsg,
		}
	}

	code := apperrors.GetCode(err)
	msg := apperrors.GetMessage(err)

	var detail string
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		detail = appErr.Detail
		if detail == "" && appErr.Cause != nil {
			detail = appErr.Cause.Error()
		}
	}

	return Response{
		Error:  int32(code),
		Msg:    msg,
		Detail: detail,
		Data:   nil,
	}
}

// ErrorResponse sends an error response from an error
func ErrorResponse(c *gin.Context, err error) {
	c.JSON(200, FromError(err))
}
