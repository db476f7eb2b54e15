package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OCR.Primary != constants.ProviderDocIntel {
		t.Errorf("OCR.Primary = %q, want %q", cfg.OCR.Primary, constants.ProviderDocIntel)
	}
	if cfg.OCR.ProviderTimeout != 30*time.Second {
		t.Errorf("OCR.ProviderTimeout = %v, want 30s", cfg.OCR.ProviderTimeout)
	}
	if cfg.OCR.MaxDocumentBytes != constants.MaxDocumentBytes {
		t.Errorf("OCR.MaxDocumentBytes = %d, want %d", cfg.OCR.MaxDocumentBytes, constants.MaxDocumentBytes)
	}
	if cfg.Analysis.HistoricalScore != 75 {
		t.Errorf("Analysis.HistoricalScore = %v, want 75", cfg.Analysis.HistoricalScore)
	}
	if len(cfg.OCR.Fallbacks) != 3 {
		t.Errorf("len(OCR.Fallbacks) = %d, want 3", len(cfg.OCR.Fallbacks))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestManagerLoadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paystub.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	t.Setenv("PAYSTUB_OCR_PRIMARY", constants.ProviderTesseract)
	t.Setenv("PAYSTUB_ANALYSIS_PERIOD_MONTHS", "6")
	t.Setenv("TEST_VISION_KEY", "sk-test")
	t.Setenv("PAYSTUB_OCR_VISION_API_KEY", "${TEST_VISION_KEY}")

	m, err := NewManager(path, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := m.Get()
	if cfg.OCR.Primary != constants.ProviderTesseract {
		t.Errorf("OCR.Primary = %q, want env override %q", cfg.OCR.Primary, constants.ProviderTesseract)
	}
	if cfg.Analysis.PeriodMonths != 6 {
		t.Errorf("Analysis.PeriodMonths = %d, want 6", cfg.Analysis.PeriodMonths)
	}
	if cfg.OCR.Vision.APIKey != "sk-test" {
		t.Errorf("OCR.Vision.APIKey = %q, want resolved env reference", cfg.OCR.Vision.APIKey)
	}
}

func TestManagerRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paystub.yaml")
	content := "ocr:\n  primary: carrier-pigeon\nanalysis:\n  penalty_method: ruinous\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewManager(path, nil)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := ErrorCode(err); got != CodeConfig {
		t.Errorf("ErrorCode = %q, want %q", got, CodeConfig)
	}
	for _, want := range []string{"ocr.primary", "analysis.penalty_method"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("asynq requires redis", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Queue.Backend = "asynq"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for asynq without redis.url")
		}
	})
	t.Run("database driver requires dsn", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Database.Driver = "sqlite"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for sqlite without dsn")
		}
	})
	t.Run("no providers", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.OCR.Primary = ""
		cfg.OCR.Fallbacks = nil
		if err := cfg.Validate(); err == nil {
			t.Error("expected error without any provider")
		}
	})
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY", "secret123")
	tests := map[string]string{
		"${TEST_API_KEY}":             "secret123",
		"${DEFINITELY_NOT_SET_12345}": "",
		"literal-value":               "literal-value",
		"prefix-${TEST_API_KEY}-tail": "prefix-secret123-tail",
	}
	for in, want := range tests {
		if got := ResolveEnvVars(in); got != want {
			t.Errorf("ResolveEnvVars(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     string
		http     int
		grpcCode codes.Code
	}{
		{"invalid input", InvalidInput("file too large"), CodeInvalidInput, http.StatusBadRequest, codes.InvalidArgument},
		{"wrapped not found", fmt.Errorf("get: %w", ErrNotFound), CodeNotFound, http.StatusNotFound, codes.NotFound},
		{"no text", fmt.Errorf("resolve: %w", ErrNoTextExtracted), CodeNoTextExtracted, http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{"cancelled", context.Canceled, CodeCancelled, http.StatusConflict, codes.Canceled},
		{"jurisdiction", NewAppError(CodeUnsupportedJurisdiction, "NV", ErrUnsupportedJurisdiction), CodeUnsupportedJurisdiction, http.StatusBadRequest, codes.InvalidArgument},
		{"other", errors.New("boom"), CodeInternal, http.StatusInternalServerError, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.code {
				t.Errorf("ErrorCode = %q, want %q", got, tt.code)
			}
			if got := HTTPStatus(tt.err); got != tt.http {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.http)
			}
			if got := status.Code(ToStatus(tt.err)); got != tt.grpcCode {
				t.Errorf("grpc code = %v, want %v", got, tt.grpcCode)
			}
		})
	}
	if HTTPStatus(nil) != http.StatusOK {
		t.Error("nil error should map to 200")
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := InvalidInput("unsupported content type %q", "image/gif")
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("InvalidInput should wrap ErrInvalidInput")
	}
	if !strings.Contains(err.Error(), `"image/gif"`) {
		t.Errorf("Error() = %q, want message with content type", err.Error())
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("method", "maximum", OneOf("conservative", "moderate", "maximum")).
		Field("months", 0.0, Between(1, 120)).
		Field("name", " ", Required)
	if !v.HasErrors() {
		t.Fatal("expected errors")
	}
	if got := len(v.Errors()); got != 2 {
		t.Errorf("len(Errors) = %d, want 2", got)
	}
	if !errors.Is(v.Err(), ErrValidation) {
		t.Error("Err should wrap ErrValidation")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG").String() != "DEBUG" {
		t.Error("debug not parsed")
	}
	if ParseLevel("nonsense").String() != "INFO" {
		t.Error("unknown level should default to info")
	}
}

func TestLoggerFromContext(t *testing.T) {
	var sb strings.Builder
	base := NewLogger(LogConfig{Level: "info", Format: "json"}, &sb)
	ctx := WithAnalysisID(WithLogger(context.Background(), base), "a-1")
	LoggerFromContext(ctx, nil).Info("hello")
	if !strings.Contains(sb.String(), `"analysis_id":"a-1"`) {
		t.Errorf("log output %q missing analysis_id", sb.String())
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,234.56", 1234.56, true},
		{"(12.00)", -12, true},
		{"12.50-", -12.5, true},
		{"40.00 hrs", 40, true},
		{"-3", -3, true},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseAmount(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
