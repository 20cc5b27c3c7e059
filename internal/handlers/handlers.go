package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
	"github.com/cristianadrielbraun/qrstudio/internal/orchestrator"
	"github.com/cristianadrielbraun/qrstudio/internal/storage"
)

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	orch         *orchestrator.Orchestrator
	store        storage.Store
	downloadName string
	maxLogoBytes int64
	log          logrus.FieldLogger
}

// Option configures a Handler.
type Option func(*Handler)

// WithDownloadName sets the attachment filename offered for downloads.
func WithDownloadName(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.downloadName = name
		}
	}
}

// WithMaxLogoBytes caps uploaded logo size.
func WithMaxLogoBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxLogoBytes = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Handler) { h.log = l }
}

// New returns a new Handler instance.
func New(orch *orchestrator.Orchestrator, store storage.Store, opts ...Option) *Handler {
	h := &Handler{
		orch:         orch,
		store:        store,
		downloadName: "qrcode.png",
		maxLogoBytes: 2 << 20,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)
	api := r.Group("/api")
	{
		api.GET("/qr", h.QRCodeHandler)
		api.POST("/generate", h.GenerateHandler)
		api.GET("/artifacts/:id", h.ArtifactHandler)
		api.GET("/artifacts/:id/download", h.DownloadHandler)
	}
}

// Health reports liveness and whether optimization is available.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "optimizer": h.orch.OptimizerEnabled()})
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrEncoding):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		body["error"] = ve.Error()
		body["field"] = ve.Field
	}
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}
