package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
	"github.com/cristianadrielbraun/qrstudio/internal/orchestrator"
	"github.com/cristianadrielbraun/qrstudio/internal/payload"
	"github.com/cristianadrielbraun/qrstudio/internal/report"
)

// generateRequest is accepted as JSON or as a (multipart) form. A logo can
// be sent as a data URI or, in multipart forms, as a "logo" file.
type generateRequest struct {
	Kind string `json:"kind" form:"kind"`
	URL  string `json:"url" form:"url"`
	payload.Contact

	Optimize     bool   `json:"optimize" form:"optimize"`
	ShapeColor   string `json:"shapeColor" form:"shapeColor"`
	EyeShape     string `json:"eyeShape" form:"eyeShape"`
	DotShape     string `json:"dotShape" form:"dotShape"`
	Instructions string `json:"userInstructions" form:"userInstructions"`
	LogoDataURI  string `json:"logoDataUri" form:"logoDataUri"`
}

type generateResponse struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Payload     string   `json:"payload"`
	DataURI     string   `json:"dataUri"`
	Optimized   bool     `json:"optimized"`
	Report      string   `json:"report,omitempty"`
	ReportHTML  string   `json:"reportHtml,omitempty"`
	Warnings    []string `json:"warnings"`
	State       string   `json:"state"`
	PreviewURL  string   `json:"previewUrl"`
	DownloadURL string   `json:"downloadUrl"`
}

// GenerateHandler builds a code for a URL or contact and, when styling is
// requested, runs it through the optimizer. The result is stored for
// preview and download.
func (h *Handler) GenerateHandler(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, model.Invalid("", "malformed request: "+err.Error()))
		return
	}

	kind := payload.Kind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind == "" {
		kind = payload.KindURL
	}
	data := payload.Data{URL: req.URL, Contact: req.Contact}

	style := model.StyleSpec{
		ShapeColor:   strings.TrimSpace(req.ShapeColor),
		EyeShape:     model.EyeShape(strings.ToLower(req.EyeShape)),
		DotShape:     model.DotShape(strings.ToLower(req.DotShape)),
		Instructions: req.Instructions,
	}
	logo, err := h.readLogo(c, req.LogoDataURI)
	if err != nil {
		h.fail(c, err)
		return
	}
	style.Logo = logo

	var stylePtr *model.StyleSpec
	if req.Optimize || !style.IsEmpty() {
		stylePtr = &style
	}

	res, err := h.orch.GenerateAndOptimize(c.Request.Context(), kind, data, stylePtr)
	if err != nil {
		h.fail(c, err)
		return
	}

	id := uuid.NewString()
	if err := h.store.Put(c.Request.Context(), id, res.Artifact); err != nil {
		h.fail(c, fmt.Errorf("store artifact: %w", err))
		return
	}

	c.JSON(http.StatusOK, h.toResponse(id, kind, res))
}

func (h *Handler) toResponse(id string, kind payload.Kind, res *orchestrator.Result) generateResponse {
	out := generateResponse{
		ID:          id,
		Kind:        string(kind),
		Payload:     res.Payload,
		DataURI:     res.Artifact.DataURI(),
		Optimized:   res.Optimized != nil,
		Report:      res.Report,
		Warnings:    append([]string{}, res.Warnings...),
		State:       string(res.State),
		PreviewURL:  "/api/artifacts/" + id,
		DownloadURL: "/api/artifacts/" + id + "/download",
	}
	if res.Report != "" {
		html, err := report.ToHTML(res.Report)
		if err != nil {
			h.log.WithError(err).Warn("render report")
		} else {
			out.ReportHTML = html
		}
	}
	return out
}

// readLogo returns the uploaded logo, from the multipart "logo" file or
// from a data URI field. It returns nil when no logo was sent.
func (h *Handler) readLogo(c *gin.Context, dataURI string) (*model.Artifact, error) {
	if fh, err := c.FormFile("logo"); err == nil {
		if fh.Size > h.maxLogoBytes {
			return nil, model.Invalid("logo", fmt.Sprintf("exceeds %d bytes", h.maxLogoBytes))
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open logo: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, h.maxLogoBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read logo: %w", err)
		}
		if int64(len(data)) > h.maxLogoBytes {
			return nil, model.Invalid("logo", fmt.Sprintf("exceeds %d bytes", h.maxLogoBytes))
		}
		a, err := sniffImage(data, fh.Header.Get("Content-Type"))
		if err != nil {
			return nil, model.Invalid("logo", err.Error())
		}
		return &a, nil
	}

	if strings.TrimSpace(dataURI) == "" {
		return nil, nil
	}
	a, err := model.ParseDataURI(dataURI)
	if err != nil {
		return nil, model.Invalid("logoDataUri", err.Error())
	}
	if int64(len(a.Data)) > h.maxLogoBytes {
		return nil, model.Invalid("logoDataUri", fmt.Sprintf("exceeds %d bytes", h.maxLogoBytes))
	}
	return &a, nil
}

// sniffImage determines the image format from the declared content type,
// falling back to content sniffing.
func sniffImage(data []byte, declared string) (model.Artifact, error) {
	if len(data) == 0 {
		return model.Artifact{}, fmt.Errorf("is empty")
	}
	if declared != "" {
		if f, err := model.FormatFromMIME(declared); err == nil {
			return model.Artifact{Format: f, Data: data}, nil
		}
	}
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "text/") && bytes.Contains(data, []byte("<svg")) {
		return model.Artifact{Format: model.FormatSVG, Data: data}, nil
	}
	f, err := model.FormatFromMIME(sniffed)
	if err != nil {
		return model.Artifact{}, err
	}
	return model.Artifact{Format: f, Data: data}, nil
}
