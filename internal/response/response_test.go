package response

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "veo-director/pkg/errors"
)

func TestFromError(t *testing.T) {
	assert.Equal(t, Response{Msg: "Success"}, FromError(nil))

	got := FromError(apperrors.Wrap(apperrors.CodeDownloadFailed, "Download failed", errors.New("status 403")))
	assert.Equal(t, int32(apperrors.CodeDownloadFailed), got.Error)
	assert.Equal(t, "Download failed", got.Msg)
	assert.Equal(t, "status 403", got.Detail)

	got = FromError(errors.New("boom"))
	assert.Equal(t, int32(apperrors.CodeUnknown), got.Error)
	assert.Equal(t, "boom", got.Msg)
}

func TestSuccessEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, map[string]int{"n": 1})

	var body struct {
		Error int32          `json:"error"`
		Msg   string         `json:"msg"`
		Data  map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int32(0), body.Error)
	assert.Equal(t, 1, body.Data["n"])
}
