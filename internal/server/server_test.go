package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/async"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/ocr"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/export"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/repository"
)

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Extract(context.Context, []byte, string) (entity.RawOCRResult, error) {
	return entity.RawOCRResult{
		Provider:      "stub",
		Success:       true,
		Confidence:    90,
		PageCount:     1,
		ExtractedText: "Employee: Ana Ruiz\nGross Pay: $800.00\nNet Pay: $700.00",
		StructuredHints: map[constants.PayStubField]entity.FieldHint{
			constants.FieldEmployeeName: {Value: "Ana Ruiz", Confidence: 0.95},
			constants.FieldGrossPay:     {Value: "800", Confidence: 0.95},
			constants.FieldNetPay:       {Value: "700", Confidence: 0.95},
			constants.FieldRegularHours: {Value: "40", Confidence: 0.9},
			constants.FieldHourlyRate:   {Value: "20", Confidence: 0.9},
		},
	}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	cfg := common.DefaultConfig()
	cfg.OCR.Primary = "stub"
	cfg.OCR.Fallbacks = nil
	cfg.OCR.Priority = []string{"stub"}
	store := repository.NewMemoryStore(time.Hour, quietLogger())
	proc := core.NewProcessor(quietLogger(), cfg, ocr.NewCoordinator(quietLogger(), stubProvider{}), store)
	queue := async.NewProcessorQueue(proc, quietLogger(), async.WithWorkers(2))
	t.Cleanup(func() { queue.Shutdown(context.Background()) })

	srv, err := New(quietLogger(), proc, queue, export.NewService(store, nil, quietLogger()), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func expectError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Errorf("status = %d, want %d", resp.StatusCode, status)
	}
	var body errorBody
	decode(t, resp, &body)
	if body.Code != code || body.Error == "" {
		t.Errorf("error body = %+v, want code %s", body, code)
	}
}

func TestRulesAnalyze(t *testing.T) {
	ts := newTestServer(t)
	url := ts.URL + "/api/v1/rules/analyze"

	t.Run("underpaid", func(t *testing.T) {
		resp := postJSON(t, url, `{
			"ocrData": {
				"employeeName": {"value": "Ana Ruiz", "confidence": 0.95},
				"hourlyRate": {"value": "$15.00", "confidence": 0.9},
				"regularHours": 40,
				"favoriteColor": "blue"
			},
			"locationInfo": {"city": "Oakland", "state": "CA"}
		}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var out analyzeResponse
		decode(t, resp, &out)
		found := false
		for _, v := range out.Violations {
			if v.Type == constants.ViolationMinimumWage {
				found = true
				if v.ExpectedValue == nil || *v.ExpectedValue != 16.94 {
					t.Errorf("minimum wage expected = %v, want Oakland 16.94", v.ExpectedValue)
				}
			}
		}
		if !found {
			t.Errorf("violations %+v missing minimum wage", out.Violations)
		}
		if out.Summary.TotalViolations != len(out.Violations) || out.RulesEngineVersion == "" || out.AnalysisTimestamp.IsZero() {
			t.Errorf("response metadata = %+v", out)
		}
		if len(out.IgnoredFields) != 1 || out.IgnoredFields[0] != "favoriteColor" {
			t.Errorf("IgnoredFields = %v", out.IgnoredFields)
		}
	})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty ocrData", `{"ocrData": {}}`, http.StatusBadRequest, common.CodeInvalidInput},
		{"missing ocrData", `{"locationInfo": {"state": "CA"}}`, http.StatusBadRequest, common.CodeInvalidInput},
		{"not json", `{"ocrData":`, http.StatusBadRequest, common.CodeInvalidInput},
		{"empty body", ``, http.StatusBadRequest, common.CodeInvalidInput},
		{"outside california", `{"ocrData": {"hourlyRate": 10}, "locationInfo": {"state": "NV"}}`, http.StatusBadRequest, common.CodeUnsupportedJurisdiction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, postJSON(t, url, tt.body), tt.status, tt.code)
		})
	}
}

func TestRulesInfo(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/rules/info")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		SupportedViolations []json.RawMessage `json:"supportedViolations"`
		MinimumWageRates    map[string]string `json:"minimumWageRates"`
	}
	decode(t, resp, &out)
	if len(out.SupportedViolations) != len(constants.AllViolationTypes()) {
		t.Errorf("len(supportedViolations) = %d, want %d", len(out.SupportedViolations), len(constants.AllViolationTypes()))
	}
	if out.MinimumWageRates["State"] != "16.00" {
		t.Errorf("State rate = %q, want 16.00", out.MinimumWageRates["State"])
	}
}

func TestPenaltiesCalculate(t *testing.T) {
	ts := newTestServer(t)
	url := ts.URL + "/api/v1/penalties/calculate"

	resp := postJSON(t, url, `{
		"violations": [{"violationType": "Minimum Wage Violation", "severity": "high", "confidence": 0.98, "actualValue": 15, "expectedValue": 16}],
		"wageContext": {"hourlyRate": 15, "regularHours": 80},
		"periodMonths": 1,
		"method": "moderate"
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out entity.PenaltyBreakdown
	decode(t, resp, &out)
	if out.UnpaidWages != 2400 {
		t.Errorf("UnpaidWages = %v, want 2400", out.UnpaidWages)
	}

	expectError(t, postJSON(t, url, `{"violations": [], "wageContext": {"hourlyRate": 15}, "method": "wild"}`), http.StatusBadRequest, common.CodeInvalidInput)
	expectError(t, postJSON(t, url, `{"violations": [{"violationType": "Jaywalking", "severity": "high"}], "wageContext": {"hourlyRate": 15}}`), http.StatusBadRequest, common.CodeInvalidInput)
	expectError(t, postJSON(t, url, `{"violations": [], "wageContext": {"hourlyRate": -1}}`), http.StatusBadRequest, common.CodeInvalidInput)
}

func TestComplianceScore(t *testing.T) {
	ts := newTestServer(t)
	url := ts.URL + "/api/v1/compliance/score"

	resp := postJSON(t, url, `{"violations": [], "employerSize": "medium"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out entity.ComplianceScore
	decode(t, resp, &out)
	if out.OverallScore != 75 || out.Grade != "C" {
		t.Errorf("score = %v/%s, want 75/C", out.OverallScore, out.Grade)
	}

	expectError(t, postJSON(t, url, `{"violations": [], "historicalScore": 150}`), http.StatusBadRequest, common.CodeInvalidInput)
	expectError(t, postJSON(t, url, `{"violations": [], "employerSize": "galactic"}`), http.StatusBadRequest, common.CodeInvalidInput)
}

func waitForStatus(t *testing.T, base, id string, want constants.AnalysisStatus) entity.AnalysisState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/api/v1/analyses/" + id)
		if err != nil {
			t.Fatal(err)
		}
		var st entity.AnalysisState
		decode(t, resp, &st)
		resp.Body.Close()
		if st.Status == want {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("status = %s (%s), want %s", st.Status, st.Error, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/analyses?city=Los%20Angeles&method=maximum", "application/pdf", bytes.NewReader([]byte("%PDF-1.7 stub")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var sub submitResponse
	decode(t, resp, &sub)
	if _, err := uuid.Parse(sub.AnalysisID); err != nil {
		t.Fatalf("analysisId %q is not a UUID", sub.AnalysisID)
	}
	if sub.Status != constants.StatusQueued {
		t.Errorf("submit status = %s, want queued", sub.Status)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/v1/analyses/"+sub.AnalysisID {
		t.Errorf("Location = %q", loc)
	}

	st := waitForStatus(t, ts.URL, sub.AnalysisID, constants.StatusCompleted)
	if st.Report == nil || st.Report.Location.City != "Los Angeles" || st.Report.Penalty.Method != constants.MethodMaximum {
		t.Fatalf("report = %+v", st.Report)
	}

	x, err := http.Get(ts.URL + "/api/v1/analyses/" + sub.AnalysisID + "/report.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	defer x.Body.Close()
	if x.StatusCode != http.StatusOK || x.Header.Get("Content-Type") != export.ContentTypeXLSX {
		t.Errorf("report.xlsx = %d %s", x.StatusCode, x.Header.Get("Content-Type"))
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/analyses/"+sub.AnalysisID, nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer del.Body.Close()
	expectError(t, del, http.StatusBadRequest, common.CodeInvalidInput)
}

func TestAnalysisErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		do     func() (*http.Response, error)
		status int
		code   string
	}{
		{"unsupported type", func() (*http.Response, error) {
			return http.Post(ts.URL+"/api/v1/analyses", "text/plain", strings.NewReader("hello"))
		}, http.StatusBadRequest, common.CodeInvalidInput},
		{"empty upload", func() (*http.Response, error) {
			return http.Post(ts.URL+"/api/v1/analyses", "application/pdf", nil)
		}, http.StatusBadRequest, common.CodeInvalidInput},
		{"non-california", func() (*http.Response, error) {
			return http.Post(ts.URL+"/api/v1/analyses?state=TX", "application/pdf", strings.NewReader("%PDF-1.7"))
		}, http.StatusBadRequest, common.CodeUnsupportedJurisdiction},
		{"bad method", func() (*http.Response, error) {
			return http.Post(ts.URL+"/api/v1/analyses?method=wild", "application/pdf", strings.NewReader("%PDF-1.7"))
		}, http.StatusBadRequest, common.CodeInvalidInput},
		{"bad id", func() (*http.Response, error) {
			return http.Get(ts.URL + "/api/v1/analyses/not-a-uuid")
		}, http.StatusBadRequest, common.CodeInvalidInput},
		{"unknown id", func() (*http.Response, error) {
			return http.Get(ts.URL + "/api/v1/analyses/" + uuid.NewString())
		}, http.StatusNotFound, common.CodeNotFound},
		{"unknown report", func() (*http.Response, error) {
			return http.Get(ts.URL + "/api/v1/analyses/" + uuid.NewString() + "/report.xlsx")
		}, http.StatusNotFound, common.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.do()
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			expectError(t, resp, tt.status, tt.code)
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	ts := newTestServer(t, WithReadinessCheck("redis", func(context.Context) error {
		if failing.Load() {
			return errors.New("connection refused")
		}
		return nil
	}))

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health = %d", resp.StatusCode)
	}
	if resp.Header.Get(headerRequestID) == "" {
		t.Error("missing request id header")
	}

	resp, err = http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Failed map[string]string `json:"failed"`
	}
	decode(t, resp, &body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable || body.Failed["redis"] == "" {
		t.Errorf("/ready = %d %v, want 503 with redis failure", resp.StatusCode, body.Failed)
	}

	failing.Store(false)
	resp, err = http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/ready = %d after recovery, want 200", resp.StatusCode)
	}
}

func TestOCRServices(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/ocr/services")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Services []ocr.ServiceInfo `json:"services"`
	}
	decode(t, resp, &out)
	if len(out.Services) != 1 || out.Services[0].Name != "stub" || out.Services[0].Role != "primary" {
		t.Errorf("services = %+v", out.Services)
	}
}

func TestGRPCHealthFollowsReadiness(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.OCR.Primary = "stub"
	store := repository.NewMemoryStore(time.Hour, quietLogger())
	proc := core.NewProcessor(quietLogger(), cfg, ocr.NewCoordinator(quietLogger(), stubProvider{}), store)
	srv, err := New(quietLogger(), proc, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	gs, hs := NewGRPCServer(quietLogger())
	defer gs.Stop()

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: HealthService})
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		return resp.GetStatus()
	}
	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("initial status = %v, want NOT_SERVING", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.WatchReadiness(ctx, hs, time.Hour)
	}()
	deadline := time.Now().Add(5 * time.Second)
	for check() != healthpb.HealthCheckResponse_SERVING {
		if time.Now().After(deadline) {
			t.Fatal("health never became SERVING")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after shutdown = %v, want NOT_SERVING", got)
	}
}
