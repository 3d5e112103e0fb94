package db

import (
	"context"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/query"
)

// EligibleFilter narrows frames for a bulk rebuild.
//
// Zero values mean "no restriction".
type EligibleFilter struct {
	Instrument string
	Since      time.Time
	Until      time.Time
}

// FrameRef identifies a frame.
type FrameRef struct {
	ID       domain.FrameID
	Filename string
}

// FrameInterface reads frames.
//
// Frames are written by ingest. This interface does not modify them.
type FrameInterface interface {
	// Select runs a calibration lookup.
	query.Backend

	// Get returns a frame with its detail records.
	//
	// Args
	//
	// - context.Context
	//
	// - domain.FrameID: id of the frame
	//
	// Returns
	//
	// - domain.Frame
	//
	// - error: errors.ErrMissing when no frame has the id.
	Get(context.Context, domain.FrameID) (domain.Frame, error)

	// GetMany returns frames in the order of ids. Missing ones are skipped.
	GetMany(context.Context, []domain.FrameID) ([]domain.Frame, error)

	// Find returns canonical frames whose filename, data label or id is the selection.
	//
	// A filename may be given with or without ".fits"/".fits.bz2".
	Find(ctx context.Context, selection string) ([]domain.Frame, error)

	// Eligible lists frames which calibrations are associated to: canonical,
	// not failed QA, with instrument and observation time.
	//
	// Frames are ordered by id.
	Eligible(context.Context, EligibleFilter) ([]FrameRef, error)
}
