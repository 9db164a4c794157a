package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"veo-director/internal/response"
	apperrors "veo-director/pkg/errors"
)

func (h Handler) DownloadFile(c *gin.Context) {
	requested := c.Param("filepath")
	if hasParentTraversal(requested) {
		c.JSON(http.StatusForbidden, response.Response{
			Error: apperrors.CodeUnauthorized,
			Msg:   "Access denied",
		})
		return
	}

	localPath, ok := resolveClipPath(h.ClipRoot, requested)
	if !ok {
		c.JSON(http.StatusNotFound, response.FromError(apperrors.ErrFileNotFound))
		return
	}
	info, err := os.Stat(localPath)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, response.FromError(apperrors.ErrFileNotFound))
		return
	}

	name := filepath.Base(localPath)
	if alias := strings.TrimSpace(c.Query("name")); alias != "" && !strings.ContainsAny(alias, `/\`) {
		name = alias
	}
	c.FileAttachment(localPath, name)
}
