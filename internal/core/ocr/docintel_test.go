package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
)

const analyzeResult = `{
  "status": "succeeded",
  "analyzeResult": {
    "content": "ACME Corp\nEmployee Name: Jane Doe\nGross Pay: $1,600.00",
    "pages": [{}],
    "keyValuePairs": [
      {"key": {"content": "Employee Name:"}, "value": {"content": "Jane Doe"}, "confidence": 0.9},
      {"key": {"content": "Gross Pay"}, "value": {"content": "$1,600.00"}, "confidence": 0.8},
      {"key": {"content": "Hourly Rate"}, "value": {"content": "twenty"}, "confidence": 0.7},
      {"key": {"content": "Favorite Color"}, "value": {"content": "blue"}, "confidence": 0.99}
    ]
  }
}`

func newDocIntelServer(t *testing.T, submitFailures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var submits, polls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, ":analyze"):
			if submits.Add(1) <= submitFailures {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Operation-Location", srv.URL+"/operations/1")
			w.WriteHeader(http.StatusAccepted)
		case r.Method == http.MethodGet && r.URL.Path == "/operations/1":
			if polls.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"status": "running"}`))
				return
			}
			_, _ = w.Write([]byte(analyzeResult))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &submits
}

func TestDocIntelProviderExtract(t *testing.T) {
	srv, submits := newDocIntelServer(t, 1)
	p := NewDocIntelProvider(DocIntelConfig{Endpoint: srv.URL, APIKey: "k", PollInterval: 5 * time.Millisecond}, srv.Client(), nil)

	res, err := p.Extract(context.Background(), []byte("%PDF-1.4"), constants.ContentTypePDF)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if submits.Load() != 2 {
		t.Errorf("submits = %d, want 2 (one retried 503)", submits.Load())
	}
	if !res.Success || res.PageCount != 1 {
		t.Errorf("result = %+v", res)
	}
	if h := res.StructuredHints[constants.FieldEmployeeName]; h.Value != "Jane Doe" || h.Confidence != 0.9 {
		t.Errorf("employeeName hint = %+v", h)
	}
	if h := res.StructuredHints[constants.FieldGrossPay]; h.Value != 1600.0 {
		t.Errorf("grossPay hint = %+v, want 1600", h)
	}
	if h := res.StructuredHints[constants.FieldHourlyRate]; h.Value != 0.0 || h.Confidence != unparsableConfidence {
		t.Errorf("hourlyRate hint = %+v, want value 0 confidence %v", h, unparsableConfidence)
	}
	if len(res.StructuredHints) != 3 {
		t.Errorf("len(hints) = %d, want 3 (unknown label dropped)", len(res.StructuredHints))
	}
	// (0.9 + 0.8 + 0.1) / 3 * 100
	if res.Confidence < 59.99 || res.Confidence > 60.01 {
		t.Errorf("Confidence = %v, want 60", res.Confidence)
	}
}

func TestDocIntelProviderAuthFailureNotRetried(t *testing.T) {
	srv, submits := newDocIntelServer(t, 0)
	p := NewDocIntelProvider(DocIntelConfig{Endpoint: srv.URL, APIKey: "wrong", MaxRetries: 3}, srv.Client(), nil)
	if _, err := p.Extract(context.Background(), []byte("%PDF-1.4"), constants.ContentTypePDF); err == nil {
		t.Fatal("expected auth error")
	}
	if submits.Load() != 0 {
		t.Errorf("submits counted = %d, want 0 (rejected before handler)", submits.Load())
	}
}

func TestDocIntelProviderNotConfigured(t *testing.T) {
	p := NewDocIntelProvider(DocIntelConfig{}, nil, nil)
	res, err := p.Extract(context.Background(), []byte("%PDF-1.4"), constants.ContentTypePDF)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Success {
		t.Error("unconfigured provider should not succeed")
	}
}
