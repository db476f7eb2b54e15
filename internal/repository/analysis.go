package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// AnalysisStore tracks the status of in-flight analyses for pollers.
// Implementations must refuse transitions the status machine does not
// allow, so nothing can be written after a terminal state.
type AnalysisStore interface {
	Create(ctx context.Context, id string) (entity.AnalysisState, error)
	Get(ctx context.Context, id string) (entity.AnalysisState, error)
	Advance(ctx context.Context, id string, u Update) (entity.AnalysisState, error)
}

// Update moves an analysis to Status. Report is kept only for completed,
// Error and ErrorCode only for failed.
type Update struct {
	Status    constants.AnalysisStatus
	Report    *entity.AnalysisReport
	Error     string
	ErrorCode string
}

func newState(id string, now time.Time) entity.AnalysisState {
	return entity.AnalysisState{
		AnalysisID: id,
		Status:     constants.StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// apply validates and performs a transition on a copy of s.
func apply(s entity.AnalysisState, u Update, now time.Time) (entity.AnalysisState, error) {
	if !s.Status.CanTransitionTo(u.Status) {
		return s, fmt.Errorf("analysis %s: %w: %s -> %s", s.AnalysisID, common.ErrInvalidTransition, s.Status, u.Status)
	}
	s.Status = u.Status
	s.UpdatedAt = now
	switch u.Status {
	case constants.StatusCompleted:
		s.Report = u.Report
	case constants.StatusFailed:
		s.Error = u.Error
		s.ErrorCode = u.ErrorCode
		s.Report = nil
	}
	return s, nil
}

func notFound(id string) error {
	return common.NewAppError(common.CodeNotFound, fmt.Sprintf("analysis %s not found", id), common.ErrNotFound)
}

func alreadyExists(id string) error {
	return common.InvalidInput("analysis %s already exists", id)
}
