package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
	"github.com/FACorreiaa/loci-visits/internal/app/observability/metrics"
)

const defaultModel = "gemini-2.0-flash"

// contentGenerator is the slice of *genai.Models the oracle uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

var _ ImageMatchOracle = (*GeminiOracle)(nil)

type GeminiOracle struct {
	logger      *zap.Logger
	models      contentGenerator
	model       string
	temperature float32
	timeout     time.Duration
}

// NewGeminiOracle fails immediately when no API key is configured.
func NewGeminiOracle(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is required", models.ErrOracleUnavailable)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiOracle(client.Models, cfg, logger), nil
}

func newGeminiOracle(gen contentGenerator, cfg GeminiConfig, logger *zap.Logger) *GeminiOracle {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiOracle{
		logger:      logger,
		models:      gen,
		model:       model,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}
}

func (o *GeminiOracle) Describe(ctx context.Context, image Image) (string, error) {
	ctx, span := otel.Tracer("GeminiOracle").Start(ctx, "Describe", trace.WithAttributes(
		attribute.String("oracle.model", o.model),
		attribute.Int("image.bytes", len(image.Data)),
	))
	defer span.End()
	l := o.logger.With(zap.String("method", "Describe"))

	text, err := o.generate(ctx, "describe", image, describePrompt, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "describe failed")
		l.Error("Oracle describe failed", zap.Error(err))
		return "", err
	}

	span.SetAttributes(attribute.Int("description.length", len(text)))
	span.SetStatus(codes.Ok, "described")
	return text, nil
}

func (o *GeminiOracle) Match(ctx context.Context, image Image, candidates []models.AttractionCandidate) (models.VerificationResult, error) {
	ctx, span := otel.Tracer("GeminiOracle").Start(ctx, "Match", trace.WithAttributes(
		attribute.String("oracle.model", o.model),
		attribute.Int("image.bytes", len(image.Data)),
		attribute.Int("candidates.count", len(candidates)),
	))
	defer span.End()
	l := o.logger.With(zap.String("method", "Match"))

	if len(candidates) == 0 {
		err := fmt.Errorf("%w: match requires at least one candidate", models.ErrValidation)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no candidates")
		return models.VerificationResult{}, err
	}

	prompt, err := matchPrompt(candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt build failed")
		return models.VerificationResult{}, err
	}

	text, err := o.generate(ctx, "match", image, prompt, "application/json")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "match failed")
		l.Error("Oracle match failed", zap.Error(err))
		return models.VerificationResult{}, err
	}

	result, ok := parseMatch(text, candidates)
	if !ok {
		metrics.Get().OracleErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "parse")))
		l.Warn("Oracle reply could not be parsed, treating as no match",
			zap.Error(models.ErrOracleParse),
			zap.Int("reply_length", len(text)))
		span.AddEvent("parse_failure")
	}

	span.SetAttributes(
		attribute.Bool("result.matched", result.Matched),
		attribute.Float64("result.confidence", result.Confidence),
		attribute.Bool("result.has_attraction", result.AttractionID != nil),
	)
	span.SetStatus(codes.Ok, "matched")
	return result, nil
}

func (o *GeminiOracle) generate(ctx context.Context, operation string, image Image, prompt, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	mediaType := image.MediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image.Data, mediaType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(o.temperature),
		ResponseMIMEType: mimeType,
	}

	start := time.Now()
	resp, err := o.models.GenerateContent(ctx, o.model, contents, config)
	metrics.Get().OracleRequestDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("operation", operation)))
	if err != nil {
		classified := classifyError(ctx, err)
		metrics.Get().OracleErrorsTotal.Add(context.WithoutCancel(ctx), 1,
			metric.WithAttributes(attribute.String("kind", errorKind(classified))))
		return "", classified
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", models.ErrOracleUnavailable)
	}
	return resp.Text(), nil
}

// classifyError maps provider and transport failures onto the oracle sentinels.
func classifyError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrOracleTimeout, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", models.ErrOracleBusy, apiErr.Message)
		case http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %s", models.ErrOracleTimeout, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", models.ErrOracleUnavailable, err)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrOracleTimeout):
		return "timeout"
	case errors.Is(err, models.ErrOracleBusy):
		return "busy"
	default:
		return "unavailable"
	}
}
