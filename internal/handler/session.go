package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"veo-director/internal/response"
	"veo-director/internal/service"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

// multipartOverhead leaves room for form boundaries and headers around the video part.
const multipartOverhead = 1 << 20

func (h Handler) CreateSession(c *gin.Context) {
	state, err := h.Service.CreateSession(c.Request.Context())
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, state)
}

func (h Handler) ListSessions(c *gin.Context) {
	response.Success(c, h.Service.ListSessions())
}

func (h Handler) GetSession(c *gin.Context) {
	state, err := h.Service.GetSession(c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, state)
}

func (h Handler) DeleteSession(c *gin.Context) {
	if err := h.Service.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, nil)
}

func (h Handler) UploadVideo(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	limit := h.Service.MaxUploadBytes + multipartOverhead
	if c.Request.ContentLength > limit {
		h.rejectOversized(c, id, c.Request.ContentLength)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, err := c.FormFile("video")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.rejectOversized(c, id, tooLarge.Limit+1)
			return
		}
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeVideoMissing, apperrors.ErrVideoMissing.Message, err))
		return
	}
	f, err := file.Open()
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeVideoMissing, apperrors.ErrVideoMissing.Message, err))
		return
	}
	defer f.Close()

	state, err := h.Service.UploadVideo(ctx, id, service.UploadRequest{
		FileName: file.Filename,
		MimeType: file.Header.Get("Content-Type"),
		Size:     file.Size,
		Body:     f,
	})
	if err != nil {
		log.GetLogger().Info("upload rejected", zap.String("session_id", id), zap.Error(err))
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, state)
}

func (h Handler) RemoveVideo(c *gin.Context) {
	state, err := h.Service.RemoveVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, state)
}

// rejectOversized records the rejection on the session without reading the body.
func (h Handler) rejectOversized(c *gin.Context, id string, size int64) {
	_, err := h.Service.UploadVideo(c.Request.Context(), id, service.UploadRequest{Size: size})
	response.ErrorResponse(c, err)
}

func (h Handler) Analyze(c *gin.Context) {
	h.accepted(c, h.Service.Analyze(c.Request.Context(), c.Param("id")))
}

type selectStyleReq struct {
	Style string `json:"style" binding:"required"`
}

func (h Handler) SelectStyle(c *gin.Context) {
	var req selectStyleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err))
		return
	}
	state, err := h.Service.SelectStyle(c.Request.Context(), c.Param("id"), req.Style)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, state)
}

func (h Handler) Script(c *gin.Context) {
	h.accepted(c, h.Service.Script(c.Request.Context(), c.Param("id")))
}

type editPromptReq struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (h Handler) EditPrompt(c *gin.Context) {
	var req editPromptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err))
		return
	}
	state, err := h.Service.EditPrompt(c.Request.Context(), c.Param("id"), c.Param("sceneId"), req.Prompt)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, state)
}

func (h Handler) GenerateScene(c *gin.Context) {
	h.accepted(c, h.Service.GenerateScene(c.Request.Context(), c.Param("id"), c.Param("sceneId")))
}

func (h Handler) CancelScene(c *gin.Context) {
	h.accepted(c, h.Service.CancelScene(c.Param("id"), c.Param("sceneId")))
}

func (h Handler) GenerateAll(c *gin.Context) {
	h.accepted(c, h.Service.GenerateAll(c.Request.Context(), c.Param("id")))
}

func (h Handler) CancelBatch(c *gin.Context) {
	h.accepted(c, h.Service.CancelBatch(c.Param("id")))
}

func (h Handler) Export(c *gin.Context) {
	clips, err := h.Service.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, clips)
}

// accepted answers a queued or fire-and-forget operation with the session's current snapshot.
func (h Handler) accepted(c *gin.Context, err error) {
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	state, err := h.Service.GetSession(c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, state)
}
