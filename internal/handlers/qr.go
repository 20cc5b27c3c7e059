package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/payload"
)

// QRCodeHandler renders the base code for a URL without optimization.
// Query: url (required), format png|jpg (default png).
func (h *Handler) QRCodeHandler(c *gin.Context) {
	rawURL := c.Query("url")

	format := strings.ToLower(c.DefaultQuery("format", "png"))
	if format == "jpeg" {
		format = "jpg"
	}
	if format != "png" && format != "jpg" {
		format = "png"
	}

	res, err := h.orch.Generate(c.Request.Context(), payload.KindURL, payload.Data{URL: rawURL})
	if err != nil {
		h.fail(c, err)
		return
	}

	art := res.Artifact
	if format == "jpg" {
		art, err = encoder.ToJPEG(art)
		if err != nil {
			h.fail(c, err)
			return
		}
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, art.MIMEType(), art.Data)
}
