package handler

import (
	"github.com/gin-gonic/gin"

	"veo-director/internal/response"
	"veo-director/internal/service"
	"veo-director/internal/types"
	apperrors "veo-director/pkg/errors"
)

type Handler struct {
	Service  *service.Service
	ClipRoot string
}

func NewHandler(svc *service.Service, clipRoot string) Handler {
	return Handler{Service: svc, ClipRoot: clipRoot}
}

type styleOption struct {
	Value types.Style `json:"value"`
	Label string      `json:"label"`
}

func (h Handler) ListStyles(c *gin.Context) {
	styles := types.Styles()
	out := make([]styleOption, 0, len(styles))
	for _, s := range styles {
		out = append(out, styleOption{Value: s, Label: s.Label()})
	}
	response.Success(c, out)
}

func (h Handler) GetCredential(c *gin.Context) {
	response.Success(c, gin.H{"selected": h.Service.CredentialSelected()})
}

type setCredentialReq struct {
	ApiKey string `json:"api_key" binding:"required"`
}

func (h Handler) SetCredential(c *gin.Context) {
	var req setCredentialReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err))
		return
	}
	if err := h.Service.SetCredential(req.ApiKey); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, gin.H{"selected": true})
}
