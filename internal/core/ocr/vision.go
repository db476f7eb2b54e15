package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/llm"
)

// VisionConfig configures VisionProvider.
type VisionConfig struct {
	APIKey     string
	BaseURL    string // optional (tests, proxies)
	Model      string // default "gpt-4o-mini"
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client // optional (tests)
}

// VisionProvider reads pay-stub images with an OpenAI multimodal model that
// answers with a field map.
type VisionProvider struct {
	model  string
	hasKey bool
	client openai.Client
	logger *slog.Logger
}

func NewVisionProvider(cfg VisionConfig, logger *slog.Logger) *VisionProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &VisionProvider{
		model:  cfg.Model,
		hasKey: cfg.APIKey != "",
		client: openai.NewClient(opts...),
		logger: logger,
	}
}

func (p *VisionProvider) Name() string { return constants.ProviderVision }

func (p *VisionProvider) SupportedContentTypes() []string {
	return []string{constants.ContentTypeJPEG, constants.ContentTypePNG}
}

func (p *VisionProvider) Extract(ctx context.Context, doc []byte, contentType string) (entity.RawOCRResult, error) {
	start := time.Now()
	rid := uuid.New().String()
	logger := common.LoggerFromContext(ctx, p.logger).With("req_id", rid, "model", p.model)

	if !p.hasKey {
		return failedResult(p.Name(), "openai api key not configured"), nil
	}
	dataURL, ok := llm.DataURL(doc, contentType)
	if !ok {
		return failedResult(p.Name(), "vision extraction supports JPEG or PNG only, got %s", contentType), nil
	}

	logger.Info("ocr.vision.start", "bytes", len(doc))
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llm.BuildVisionSystemPrompt()),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(llm.BuildVisionUserPrompt()),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	})
	if err != nil {
		err = mapOpenAIError(err)
		logger.Error("ocr.vision.http_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.RawOCRResult{}, err
	}
	if len(resp.Choices) == 0 {
		return failedResult(p.Name(), "no choices in openai response"), nil
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	fm, cleaned, err := llm.ParseFieldMap([]byte(content))
	if err != nil {
		logger.Error("ocr.vision.schema_validation_failed",
			"error", err, "content", truncate(string(cleaned), 500),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return failedResult(p.Name(), "model output rejected: %v", err), nil
	}
	if len(fm) == 0 {
		return failedResult(p.Name(), "model found no pay stub fields"), nil
	}

	conf := fm.MeanConfidence() * 100
	logger.Info("ocr.vision.ok",
		"fields", len(fm),
		"confidence", conf,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.RawOCRResult{
		Provider:        p.Name(),
		Success:         true,
		Confidence:      conf,
		StructuredHints: fm.Hints(),
		PageCount:       1,
		Duration:        time.Since(start),
	}, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("openai vision error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("openai vision error (status %d)", apiErr.StatusCode)
	}
	return err
}
