package optimizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// OpenAISettings configures the OpenAI backend.
type OpenAISettings struct {
	APIKey     string
	BaseURL    string
	Model      string // chat model used for reports
	ImageModel string // image model used for restyling
}

// OpenAIBackend implements Reporter with a vision chat completion and
// Painter with an image edit.
type OpenAIBackend struct {
	model      string
	imageModel string
	client     openai.Client
}

// NewOpenAIBackend builds a backend from settings.
func NewOpenAIBackend(cfg OpenAISettings) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gpt-image-1"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIBackend{
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		client:     openai.NewClient(opts...),
	}, nil
}

// Report asks the chat model to review the base image.
func (o *OpenAIBackend) Report(ctx context.Context, req Request) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(reportPrompt(req)),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: req.QRCodeDataURI}),
	}
	if req.LogoDataURI != "" {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: req.LogoDataURI}))
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(reportSystemPrompt),
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return "", &model.OptimizationError{Reason: "openai report", Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &model.OptimizationError{Reason: "openai report: empty choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

// Paint asks the image model to restyle the base image.
func (o *OpenAIBackend) Paint(ctx context.Context, req Request) (model.Artifact, error) {
	base, err := req.Base()
	if err != nil {
		return model.Artifact{}, &model.OptimizationError{Reason: "openai image: invalid base image", Err: err}
	}
	images := []io.Reader{openai.File(bytes.NewReader(base.Data), "qrcode"+base.Extension(), base.MIMEType())}
	logo, err := req.Logo()
	if err != nil {
		return model.Artifact{}, &model.OptimizationError{Reason: "openai image: invalid logo", Err: err}
	}
	if logo != nil {
		images = append(images, openai.File(bytes.NewReader(logo.Data), "logo"+logo.Extension(), logo.MIMEType()))
	}

	params := openai.ImageEditParams{
		Prompt: paintPrompt(req),
		Model:  openai.ImageModel(o.imageModel),
	}
	if len(images) == 1 {
		params.Image = openai.ImageEditParamsImageUnion{OfFile: images[0]}
	} else {
		params.Image = openai.ImageEditParamsImageUnion{OfFileArray: images}
	}

	resp, err := o.client.Images.Edit(ctx, params)
	if err != nil {
		return model.Artifact{}, &model.OptimizationError{Reason: "openai image", Err: err}
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return model.Artifact{}, &model.OptimizationError{Reason: "openai image: no base64 image in response"}
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return model.Artifact{}, &model.OptimizationError{Reason: "openai image: decode", Err: err}
	}
	return model.NewPNG(data), nil
}
