package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/async"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/ocr"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/export"
)

type submitResponse struct {
	AnalysisID string                   `json:"analysisId"`
	Status     constants.AnalysisStatus `json:"status"`
}

// parseSubmitQuery reads location and scoring options from the query
// string.
func parseSubmitQuery(r *http.Request) (entity.LocationInfo, core.AnalysisOptions, error) {
	q := r.URL.Query()
	loc := entity.LocationInfo{
		City:    q.Get("city"),
		State:   q.Get("state"),
		ZipCode: q.Get("zip"),
	}.WithDefaults()

	opts := core.AnalysisOptions{Industry: q.Get("industry")}
	v := common.NewValidator()
	if pm := q.Get("periodMonths"); pm != "" {
		n, err := strconv.Atoi(pm)
		if err != nil || n < 1 {
			v.Field("periodMonths", pm, common.Invalid("must be a positive integer"))
		}
		opts.PeriodMonths = n
	}
	if m := q.Get("method"); m != "" {
		method, ok := constants.ParsePenaltyMethod(m)
		if !ok {
			v.Field("method", m, common.Invalid("must be conservative, moderate or maximum"))
		}
		opts.Method = method
	}
	if es := q.Get("employerSize"); es != "" {
		size, ok := constants.ParseEmployerSize(es)
		if !ok {
			v.Field("employerSize", es, common.Invalid("must be small, medium, large or enterprise"))
		}
		opts.EmployerSize = size
	}
	if hs := q.Get("historicalScore"); hs != "" {
		f, err := strconv.ParseFloat(hs, 64)
		if err != nil {
			v.Field("historicalScore", hs, common.Invalid("must be a number"))
		} else {
			v.Field("historicalScore", f, common.Between(0, 100))
			opts.HistoricalScore = &f
		}
	}
	return loc, opts, v.Err()
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc, opts, err := parseSubmitQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.proc.Engine().ApplicableMinimumWage(loc); err != nil {
		writeError(w, err)
		return
	}

	doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, common.InvalidInput("file exceeds the %d byte limit", tooLarge.Limit))
			return
		}
		writeError(w, common.InvalidInput("read upload: %v", err))
		return
	}
	contentType := r.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	req := core.AnalyzeRequest{Document: doc, ContentType: contentType, Location: loc, Options: opts}
	state, err := s.proc.Submit(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	job := async.Job{Request: req, SubmittedAt: time.Now(), TraceID: common.RequestIDFromContext(ctx)}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.proc.Abort(ctx, req.AnalysisID, err)
		writeError(w, common.NewAppError(common.CodeInternal, "could not queue analysis", err))
		return
	}
	w.Header().Set("Location", "/api/v1/analyses/"+req.AnalysisID)
	writeJSON(w, http.StatusAccepted, submitResponse{AnalysisID: state.AnalysisID, Status: state.Status})
}

func analysisID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if err := common.NewValidator().Field("id", id, common.UUID).Err(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := analysisID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := s.proc.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := analysisID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := s.proc.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func writeXLSX(w http.ResponseWriter, name string, b []byte) {
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	id, err := analysisID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := s.exporter.ExportReportXLSX(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeXLSX(w, "paystub-analysis-"+id+".xlsx", b)
}

func (s *Server) handleHistoryXLSX(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	b, err := s.exporter.ExportHistoryXLSX(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeXLSX(w, "paystub-history.xlsx", b)
}

func (s *Server) handleOCRServices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"services": ocr.Services(s.proc.Policy(), s.proc.Coordinator().Providers()),
	})
}
