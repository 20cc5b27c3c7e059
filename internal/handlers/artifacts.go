package handlers

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// ArtifactHandler serves a stored artifact inline.
func (h *Handler) ArtifactHandler(c *gin.Context) {
	a, ok := h.load(c)
	if !ok {
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, a.MIMEType(), a.Data)
}

// DownloadHandler serves the same bytes as ArtifactHandler as an attachment.
func (h *Handler) DownloadHandler(c *gin.Context) {
	a, ok := h.load(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": h.filename(a),
	}))
	c.Data(http.StatusOK, a.MIMEType(), a.Data)
}

func (h *Handler) load(c *gin.Context) (model.Artifact, bool) {
	a, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return model.Artifact{}, false
	}
	return a, true
}

// filename keeps the configured base name with the artifact's extension.
func (h *Handler) filename(a model.Artifact) string {
	base := strings.TrimSuffix(h.downloadName, filepath.Ext(h.downloadName))
	return base + a.Extension()
}
