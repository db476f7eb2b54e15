package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/async"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/export"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/llm"
)

const (
	headerRequestID = "X-Request-ID"
	maxJSONBody     = 1 << 20
)

// ReadinessCheck is one dependency probed by /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server is the HTTP JSON boundary of the analysis pipeline.
type Server struct {
	proc     *core.Processor
	queue    async.Queue
	exporter *export.Service
	checks   []ReadinessCheck
	logger   *slog.Logger
	maxBytes int64

	analyzeSchema    *jsonschema.Schema
	penaltySchema    *jsonschema.Schema
	complianceSchema *jsonschema.Schema
}

type Option func(*Server)

// WithReadinessCheck adds a dependency to /ready.
func WithReadinessCheck(name string, check func(ctx context.Context) error) Option {
	return func(s *Server) { s.checks = append(s.checks, ReadinessCheck{Name: name, Check: check}) }
}

// WithMaxDocumentBytes caps uploaded documents.
func WithMaxDocumentBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func New(logger *slog.Logger, proc *core.Processor, queue async.Queue, exporter *export.Service, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		proc:     proc,
		queue:    queue,
		exporter: exporter,
		logger:   logger,
		maxBytes: 10 << 20,
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.analyzeSchema, err = llm.CompileSchema(llm.AnalyzeRequestSchema()); err != nil {
		return nil, fmt.Errorf("analyze schema: %w", err)
	}
	if s.penaltySchema, err = llm.CompileSchema(llm.PenaltyRequestSchema()); err != nil {
		return nil, fmt.Errorf("penalty schema: %w", err)
	}
	if s.complianceSchema, err = llm.CompileSchema(llm.ComplianceRequestSchema()); err != nil {
		return nil, fmt.Errorf("compliance schema: %w", err)
	}
	return s, nil
}

// Handler returns the routed, logged HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/rules/analyze", s.handleRulesAnalyze)
	mux.HandleFunc("GET /api/v1/rules/info", s.handleRulesInfo)
	mux.HandleFunc("POST /api/v1/penalties/calculate", s.handlePenalties)
	mux.HandleFunc("POST /api/v1/compliance/score", s.handleCompliance)

	mux.HandleFunc("POST /api/v1/analyses", s.handleSubmit)
	mux.HandleFunc("GET /api/v1/analyses/{id}", s.handleStatus)
	mux.HandleFunc("DELETE /api/v1/analyses/{id}", s.handleCancel)
	mux.HandleFunc("GET /api/v1/analyses/{id}/report.xlsx", s.handleReportXLSX)
	mux.HandleFunc("GET /api/v1/reports/history.xlsx", s.handleHistoryXLSX)

	mux.HandleFunc("GET /api/v1/ocr/services", s.handleOCRServices)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	return s.withRequestContext(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// withRequestContext assigns a request id, attaches a request-scoped
// logger, recovers panics and logs one line per request.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		logger := s.logger.With("request_id", reqID)
		ctx := common.WithLogger(common.WithRequestID(r.Context(), reqID), logger)
		w.Header().Set(headerRequestID, reqID)

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			if p := recover(); p != nil {
				logger.Error("http.panic", "panic", p, "path", r.URL.Path)
				if rec.status == 0 {
					writeError(rec, common.NewAppError(common.CodeInternal, "internal error", fmt.Errorf("panic: %v", p)))
				}
			}
			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "http.request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}()
		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

func (s *Server) log(ctx context.Context) *slog.Logger {
	return common.LoggerFromContext(ctx, s.logger)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError hides internal causes from clients; typed errors carry their
// own message.
func writeError(w http.ResponseWriter, err error) {
	code := common.ErrorCode(err)
	msg := "internal error"
	var ae *common.AppError
	if errors.As(err, &ae) && code != common.CodeInternal {
		msg = ae.Message
	} else if code != common.CodeInternal {
		msg = err.Error()
	}
	writeJSON(w, common.HTTPStatus(err), errorBody{Error: msg, Code: code})
}

// decodeJSON validates the body against schema before decoding it into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.InvalidInput("request body exceeds %d bytes", tooLarge.Limit)
		}
		return common.InvalidInput("read request body: %v", err)
	}
	if len(body) == 0 {
		return common.InvalidInput("request body is empty")
	}
	if err := llm.ValidateJSON(schema, body); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return common.NewAppError(common.CodeInvalidInput, describeSchemaError(ve), common.ErrValidation)
		}
		return common.NewAppError(common.CodeInvalidInput, "request body is not valid JSON", common.ErrValidation)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return common.NewAppError(common.CodeInvalidInput, "request body does not match the expected shape", common.ErrValidation)
	}
	return nil
}

// describeSchemaError reports the deepest failing location.
func describeSchemaError(ve *jsonschema.ValidationError) string {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := leaf.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("invalid request at %s: %s", loc, leaf.Message)
}
