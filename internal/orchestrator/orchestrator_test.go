package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/model"
	"github.com/cristianadrielbraun/qrstudio/internal/optimizer"
	"github.com/cristianadrielbraun/qrstudio/internal/payload"
	"github.com/cristianadrielbraun/qrstudio/internal/verify"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// recordingEncoder delegates to a real encoder and remembers its calls.
type recordingEncoder struct {
	inner    encoder.Encoder
	mu       sync.Mutex
	payloads []string
}

func (r *recordingEncoder) Encode(ctx context.Context, p string) (model.Artifact, error) {
	r.mu.Lock()
	r.payloads = append(r.payloads, p)
	r.mu.Unlock()
	return r.inner.Encode(ctx, p)
}

func (r *recordingEncoder) Params() encoder.Params { return r.inner.Params() }

func (r *recordingEncoder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func newRecordingEncoder(t *testing.T) *recordingEncoder {
	t.Helper()
	return &recordingEncoder{inner: encoder.New(encoder.WithTempDir(t.TempDir()), encoder.WithLogger(quietLogger()))}
}

// blockingClient waits for its context to end, simulating a service that
// never answers.
type blockingClient struct{}

func (blockingClient) Optimize(ctx context.Context, _ model.Artifact, _ model.StyleSpec) (*model.OptimizationResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fixedClient struct {
	res   *model.OptimizationResult
	err   error
	calls int
	got   model.StyleSpec
}

func (f *fixedClient) Optimize(_ context.Context, _ model.Artifact, style model.StyleSpec) (*model.OptimizationResult, error) {
	f.calls++
	f.got = style
	return f.res, f.err
}

type fixedScanner struct {
	text string
	err  error
}

func (s fixedScanner) Scan(context.Context, model.Artifact) (string, error) { return s.text, s.err }

func TestGenerateAndOptimize_FallbackOnTimeout(t *testing.T) {
	enc := newRecordingEncoder(t)
	o := New(enc,
		WithOptimizer(optimizer.WithTimeout(blockingClient{}, 20*time.Millisecond)),
		WithLogger(quietLogger()),
	)

	res, err := o.GenerateAndOptimize(context.Background(), payload.KindURL,
		payload.Data{URL: "https://example.com"}, &model.StyleSpec{ShapeColor: "#000000"})
	if err != nil {
		t.Fatalf("GenerateAndOptimize: %v", err)
	}
	if res.State != StateDone {
		t.Errorf("State = %s, want DONE", res.State)
	}
	if res.Optimized != nil {
		t.Error("Optimized should be absent after a failed optimization")
	}
	if !res.Artifact.Equal(res.Base) || !res.Current().Equal(res.Base) {
		t.Error("Artifact should equal the base artifact")
	}
	if res.Report != "" {
		t.Errorf("Report = %q, want empty", res.Report)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "timed out") {
		t.Errorf("Warnings = %v, want one timeout warning", res.Warnings)
	}
	if !res.Fallback() {
		t.Error("Fallback() = false, want true")
	}

	// The fallback artifact is the same code a plain Generate returns.
	plain, err := o.Generate(context.Background(), payload.KindURL, payload.Data{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !plain.Artifact.Equal(res.Artifact) {
		t.Error("fallback artifact differs from the base code")
	}
}

func TestGenerateAndOptimize_ContactEndToEnd(t *testing.T) {
	enc := newRecordingEncoder(t)
	o := New(enc, WithLogger(quietLogger()))

	data := payload.Data{Contact: payload.Contact{
		Name:  "John Doe",
		Phone: "+1 123 456 7890",
		Email: "john.doe@email.com",
	}}
	res, err := o.Generate(context.Background(), payload.KindContact, data)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := "BEGIN:VCARD\nVERSION:3.0\nFN:John Doe\nN:John Doe;;;\nTEL;TYPE=CELL:+1 123 456 7890\nEMAIL:john.doe@email.com\nEND:VCARD"
	if !strings.HasPrefix(res.Payload, want) {
		t.Errorf("Payload = %q, want prefix %q", res.Payload, want)
	}
	if strings.Contains(res.Payload, "ORG:") || strings.Contains(res.Payload, "TITLE:") {
		t.Errorf("Payload should not contain ORG/TITLE: %q", res.Payload)
	}
	if enc.calls() != 1 || enc.payloads[0] != res.Payload {
		t.Errorf("encoder calls = %v", enc.payloads)
	}
	if p := enc.Params(); p != encoder.DefaultParams || p.Width != 512 || p.Margin != 2 || p.ECC != encoder.ECCHigh {
		t.Errorf("encoder params = %+v", p)
	}

	img, err := png.Decode(bytes.NewReader(res.Artifact.Data))
	if err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 512 || b.Dy() != 512 {
		t.Errorf("artifact size = %dx%d, want 512x512", b.Dx(), b.Dy())
	}
	if res.Report != "" || len(res.Warnings) != 0 {
		t.Errorf("unexpected report/warnings: %q %v", res.Report, res.Warnings)
	}
}

func TestGenerateAndOptimize_ValidationFails(t *testing.T) {
	tests := []struct {
		name  string
		kind  payload.Kind
		data  payload.Data
		style *model.StyleSpec
		field string
	}{
		{"empty url", payload.KindURL, payload.Data{}, nil, "url"},
		{"empty name", payload.KindContact, payload.Data{Contact: payload.Contact{Email: "a@b.co"}}, nil, "name"},
		{"bad email", payload.KindContact, payload.Data{Contact: payload.Contact{Name: "A", Email: "not-an-email"}}, nil, "email"},
		{"bad style", payload.KindURL, payload.Data{URL: "https://example.com"}, &model.StyleSpec{EyeShape: "star"}, "eyeShape"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := newRecordingEncoder(t)
			var states []State
			o := New(enc, WithLogger(quietLogger()), WithStateHook(func(s State) { states = append(states, s) }))

			res, err := o.GenerateAndOptimize(context.Background(), tt.kind, tt.data, tt.style)
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			var se *StepError
			if !errors.As(err, &se) || se.State != StateValidating {
				t.Errorf("error = %v, want StepError at VALIDATING", err)
			}
			if enc.calls() != 0 {
				t.Error("encoder should not run after a validation failure")
			}
			wantStates := []State{StateIdle, StateValidating, StateFailed}
			if !reflect.DeepEqual(states, wantStates) {
				t.Errorf("states = %v, want %v", states, wantStates)
			}
		})
	}
}

func TestGenerateAndOptimize_EncodingFails(t *testing.T) {
	client := &fixedClient{}
	o := New(newRecordingEncoder(t), WithOptimizer(client), WithLogger(quietLogger()))
	_, err := o.GenerateAndOptimize(context.Background(), payload.KindURL,
		payload.Data{URL: "https://example.com/" + strings.Repeat("x", 4000)}, &model.StyleSpec{})
	if !errors.Is(err, model.ErrEncoding) {
		t.Fatalf("error = %v, want ErrEncoding", err)
	}
	var se *StepError
	if !errors.As(err, &se) || se.State != StateEncoding {
		t.Errorf("error = %v, want StepError at ENCODING", err)
	}
	if client.calls != 0 {
		t.Error("optimizer should not run after an encoding failure")
	}
}

func TestGenerateAndOptimize_Optimized(t *testing.T) {
	styled := model.NewPNG([]byte("styled"))
	client := &fixedClient{res: &model.OptimizationResult{Artifact: styled, Report: "## Looks good"}}
	var states []State
	o := New(newRecordingEncoder(t),
		WithOptimizer(client),
		WithLogger(quietLogger()),
		WithStateHook(func(s State) { states = append(states, s) }),
	)
	style := &model.StyleSpec{ShapeColor: "#112233", DotShape: model.DotDots}

	res, err := o.GenerateAndOptimize(context.Background(), payload.KindURL, payload.Data{URL: "https://example.com"}, style)
	if err != nil {
		t.Fatalf("GenerateAndOptimize: %v", err)
	}
	if res.Optimized == nil || !res.Artifact.Equal(styled) || !res.Current().Equal(styled) {
		t.Error("Artifact should be the optimized image")
	}
	if res.Base.Equal(styled) {
		t.Error("Base should stay the encoder output")
	}
	if res.Report != "## Looks good" {
		t.Errorf("Report = %q", res.Report)
	}
	if client.got.ShapeColor != "#112233" || client.got.DotShape != model.DotDots {
		t.Errorf("optimizer got style %+v", client.got)
	}
	wantStates := []State{StateIdle, StateValidating, StateEncoding, StateOptimizing, StateDone}
	if !reflect.DeepEqual(states, wantStates) {
		t.Errorf("states = %v, want %v", states, wantStates)
	}
}

func TestGenerateAndOptimize_OptimizationErrorIsSoft(t *testing.T) {
	client := &fixedClient{err: &model.OptimizationError{Reason: "HTTP 503: model overloaded"}}
	o := New(newRecordingEncoder(t), WithOptimizer(client), WithLogger(quietLogger()))
	res, err := o.GenerateAndOptimize(context.Background(), payload.KindURL, payload.Data{URL: "https://example.com"}, &model.StyleSpec{})
	if err != nil {
		t.Fatalf("GenerateAndOptimize: %v", err)
	}
	if !res.Artifact.Equal(res.Base) || res.Report != "" {
		t.Errorf("want base artifact without report, got report %q", res.Report)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "model overloaded") {
		t.Errorf("Warnings = %v", res.Warnings)
	}
}

func TestGenerateAndOptimize_ScanVerification(t *testing.T) {
	styled := model.NewPNG([]byte("styled"))
	tests := []struct {
		name          string
		scanner       verify.Scanner
		wantOptimized bool
	}{
		{"scans to payload", fixedScanner{text: "https://example.com"}, true},
		{"scans to other text", fixedScanner{text: "https://evil.example"}, false},
		{"does not scan", fixedScanner{err: errors.New("no QR code found")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fixedClient{res: &model.OptimizationResult{Artifact: styled, Report: "report"}}
			o := New(newRecordingEncoder(t), WithOptimizer(client), WithScanner(tt.scanner), WithLogger(quietLogger()))
			res, err := o.GenerateAndOptimize(context.Background(), payload.KindURL, payload.Data{URL: "https://example.com"}, &model.StyleSpec{})
			if err != nil {
				t.Fatalf("GenerateAndOptimize: %v", err)
			}
			if got := res.Optimized != nil; got != tt.wantOptimized {
				t.Errorf("optimized = %v, want %v", got, tt.wantOptimized)
			}
			if !tt.wantOptimized {
				if !res.Artifact.Equal(res.Base) {
					t.Error("Artifact should fall back to the base code")
				}
				if len(res.Warnings) != 1 {
					t.Errorf("Warnings = %v, want one", res.Warnings)
				}
			}
			if tt.wantOptimized && res.Report != "report" {
				t.Errorf("Report = %q, want %q", res.Report, "report")
			}
			if !tt.wantOptimized && res.Report != "" {
				t.Errorf("Report = %q, want none with the base code", res.Report)
			}
		})
	}
}

func TestGenerateAndOptimize_RealScannerOnBaseCode(t *testing.T) {
	// The stub backend returns the base image, which must verify.
	o := New(newRecordingEncoder(t),
		WithOptimizer(optimizer.NewSplitClient(optimizer.StubBackend{}, optimizer.StubBackend{})),
		WithScanner(verify.NewScanner(true)),
		WithLogger(quietLogger()),
	)
	res, err := o.GenerateAndOptimize(context.Background(), payload.KindURL, payload.Data{URL: "https://example.com"}, &model.StyleSpec{})
	if err != nil {
		t.Fatalf("GenerateAndOptimize: %v", err)
	}
	if res.Optimized == nil {
		t.Fatalf("expected optimized artifact, warnings: %v", res.Warnings)
	}
	if res.Report == "" {
		t.Error("expected stub report")
	}
}

func TestGenerateAndOptimize_LocalDotsStillScan(t *testing.T) {
	enc := encoder.New(encoder.WithTempDir(t.TempDir()), encoder.WithLogger(quietLogger()))
	scanner := verify.NewScanner(true)
	o := New(enc,
		WithOptimizer(optimizer.NewSplitClient(optimizer.StubBackend{}, optimizer.NewLocalPainter(scanner, enc))),
		WithScanner(scanner),
		WithLogger(quietLogger()),
	)
	inputs := []struct {
		name string
		kind payload.Kind
		data payload.Data
	}{
		{"url", payload.KindURL, payload.Data{URL: "https://example.com"}},
		{"contact", payload.KindContact, payload.Data{Contact: payload.Contact{Name: "Jane Roe", Email: "jane@example.org"}}},
	}
	for _, in := range inputs {
		t.Run(in.name, func(t *testing.T) {
			res, err := o.GenerateAndOptimize(context.Background(), in.kind, in.data,
				&model.StyleSpec{ShapeColor: "#123456", DotShape: model.DotDots})
			if err != nil {
				t.Fatalf("GenerateAndOptimize: %v", err)
			}
			if res.Optimized == nil {
				t.Fatalf("expected optimized artifact, warnings: %v", res.Warnings)
			}
			if res.Artifact.Equal(res.Base) {
				t.Error("dots style should differ from the base code")
			}
		})
	}
}

func TestGenerateAndOptimize_NoOptimizerConfigured(t *testing.T) {
	o := New(newRecordingEncoder(t), WithLogger(quietLogger()))
	if o.OptimizerEnabled() {
		t.Fatal("OptimizerEnabled() = true")
	}
	res, err := o.GenerateAndOptimize(context.Background(), payload.KindURL, payload.Data{URL: "https://example.com"}, &model.StyleSpec{})
	if err != nil {
		t.Fatalf("GenerateAndOptimize: %v", err)
	}
	if !res.Artifact.Equal(res.Base) || len(res.Warnings) != 1 {
		t.Errorf("want base artifact with one warning, got %v", res.Warnings)
	}
}

func TestGenerate_SkipsOptimizer(t *testing.T) {
	client := &fixedClient{}
	o := New(newRecordingEncoder(t), WithOptimizer(client), WithLogger(quietLogger()))
	res, err := o.Generate(context.Background(), payload.KindURL, payload.Data{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if client.calls != 0 {
		t.Error("Generate should not call the optimizer")
	}
	if len(res.Warnings) != 0 || res.Fallback() {
		t.Errorf("Warnings = %v", res.Warnings)
	}
}
