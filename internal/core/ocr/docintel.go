package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// unparsableConfidence is assigned to numeric fields whose printed value
// could not be read as a number.
const unparsableConfidence = 0.1

// DocIntelConfig configures DocIntelProvider.
type DocIntelConfig struct {
	Endpoint     string
	APIKey       string
	Model        string // default "prebuilt-document"
	APIVersion   string // default "2023-07-31"
	PollInterval time.Duration
	MaxRetries   int
}

// DocIntelProvider calls the Azure Document Intelligence analyze API and
// maps its key/value pairs onto pay-stub fields.
type DocIntelProvider struct {
	cfg    DocIntelConfig
	client *http.Client
	logger *slog.Logger
}

func NewDocIntelProvider(cfg DocIntelConfig, client *http.Client, logger *slog.Logger) *DocIntelProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Model == "" {
		cfg.Model = "prebuilt-document"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-07-31"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &DocIntelProvider{cfg: cfg, client: client, logger: logger}
}

func (p *DocIntelProvider) Name() string { return constants.ProviderDocIntel }

type diAnalyzeResponse struct {
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	AnalyzeResult struct {
		Content       string `json:"content"`
		Pages         []any  `json:"pages"`
		KeyValuePairs []struct {
			Key struct {
				Content string `json:"content"`
			} `json:"key"`
			Value *struct {
				Content string `json:"content"`
			} `json:"value"`
			Confidence float64 `json:"confidence"`
		} `json:"keyValuePairs"`
	} `json:"analyzeResult"`
}

// statusError is an HTTP failure from the service.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("document intelligence status %d: %s", e.Code, truncate(e.Body, 300))
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (p *DocIntelProvider) Extract(ctx context.Context, doc []byte, contentType string) (entity.RawOCRResult, error) {
	start := time.Now()
	if p.cfg.Endpoint == "" || p.cfg.APIKey == "" {
		return failedResult(p.Name(), "document intelligence endpoint or key not configured"), nil
	}
	logger := common.LoggerFromContext(ctx, p.logger)

	var opURL string
	err := retry.Do(func() error {
		var err error
		opURL, err = p.submit(ctx, doc, contentType)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(uint(p.cfg.MaxRetries)),
		retry.Delay(p.cfg.PollInterval),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		logger.Error("ocr.docintel.submit_failed", "error", err)
		return entity.RawOCRResult{}, err
	}

	res, err := p.poll(ctx, opURL)
	if err != nil {
		logger.Error("ocr.docintel.poll_failed", "error", err)
		return entity.RawOCRResult{}, err
	}
	if res.Status != "succeeded" {
		msg := "analysis " + res.Status
		if res.Error != nil {
			msg = res.Error.Code + ": " + res.Error.Message
		}
		return failedResult(p.Name(), "%s", msg), nil
	}

	hints := make(map[constants.PayStubField]entity.FieldHint)
	for _, kv := range res.AnalyzeResult.KeyValuePairs {
		if kv.Value == nil {
			continue
		}
		f, ok := constants.CanonicalizeField(kv.Key.Content)
		if !ok {
			continue
		}
		if prev, seen := hints[f]; seen && prev.Confidence >= kv.Confidence {
			continue
		}
		hints[f] = fieldHint(f, kv.Value.Content, kv.Confidence)
	}

	text := CleanText(res.AnalyzeResult.Content)
	var conf float64
	if len(hints) > 0 {
		var sum float64
		for _, h := range hints {
			sum += h.Confidence
		}
		conf = sum / float64(len(hints)) * 100
	} else {
		conf = HeuristicConfidence(text)
	}

	logger.Info("ocr.docintel.ok",
		"fields", len(hints),
		"pages", len(res.AnalyzeResult.Pages),
		"confidence", conf,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.RawOCRResult{
		Provider:        p.Name(),
		Success:         text != "" || len(hints) > 0,
		Confidence:      conf,
		ExtractedText:   text,
		StructuredHints: hints,
		PageCount:       len(res.AnalyzeResult.Pages),
		Duration:        time.Since(start),
	}, nil
}

// fieldHint coerces a printed value for f. Numeric fields that cannot be
// parsed keep value 0 with a floor confidence.
func fieldHint(f constants.PayStubField, printed string, confidence float64) entity.FieldHint {
	printed = strings.TrimSpace(printed)
	if !f.Numeric() {
		return entity.FieldHint{Value: printed, Confidence: confidence}
	}
	v, ok := common.ParseAmount(printed)
	if !ok {
		return entity.FieldHint{Value: 0.0, Confidence: unparsableConfidence}
	}
	return entity.FieldHint{Value: v, Confidence: confidence}
}

func (p *DocIntelProvider) submit(ctx context.Context, doc []byte, contentType string) (string, error) {
	u := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?api-version=%s",
		p.cfg.Endpoint, url.PathEscape(p.cfg.Model), url.QueryEscape(p.cfg.APIVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(doc))
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("document intelligence http error: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return "", &statusError{Code: resp.StatusCode, Body: string(body)}
	}
	op := resp.Header.Get("Operation-Location")
	if op == "" {
		return "", retry.Unrecoverable(errors.New("document intelligence: missing Operation-Location header"))
	}
	return op, nil
}

func (p *DocIntelProvider) poll(ctx context.Context, opURL string) (diAnalyzeResponse, error) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	for {
		var res diAnalyzeResponse
		err := retry.Do(func() error {
			var err error
			res, err = p.fetch(ctx, opURL)
			return err
		},
			retry.Context(ctx),
			retry.Attempts(uint(p.cfg.MaxRetries)),
			retry.Delay(p.cfg.PollInterval),
			retry.RetryIf(retryable),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return res, err
		}
		switch res.Status {
		case "succeeded", "failed", "canceled":
			return res, nil
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *DocIntelProvider) fetch(ctx context.Context, opURL string) (diAnalyzeResponse, error) {
	var out diAnalyzeResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return out, retry.Unrecoverable(err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.APIKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return out, fmt.Errorf("document intelligence http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, err
	}
	if resp.StatusCode != http.StatusOK {
		return out, &statusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, retry.Unrecoverable(fmt.Errorf("decode analyze result: %w", err))
	}
	return out, nil
}
