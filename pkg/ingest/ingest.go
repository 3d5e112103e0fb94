// Package ingest is the boundary between archive ingestion and the
// association engine.
//
// Ingest reports new frames and header corrections here, and frames whose
// associations may change are put on the refresh queue.
package ingest

import (
	"context"
	"log"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	kqueue "github.com/fitsarchive/calassoc/pkg/domain/queue/db"
)

type Hook interface {
	// Ingested is called after a frame is ingested.
	Ingested(ctx context.Context, frame domain.FrameID, filename string) error

	// Corrected is called after header fields of a frame are corrected.
	//
	// The frame is enqueued only when a changed field takes part in
	// association.
	//
	// Returns
	//
	// - bool: true if the frame is enqueued.
	//
	// - error
	Corrected(ctx context.Context, frame domain.FrameID, filename string, changed []string) (bool, error)
}

type hook struct {
	queue  kqueue.QueueInterface
	logger *log.Logger
}

func New(queue kqueue.QueueInterface, logger *log.Logger) Hook {
	return &hook{queue: queue, logger: logger}
}

func (h *hook) Ingested(ctx context.Context, frame domain.FrameID, filename string) error {
	added, err := h.queue.Enqueue(ctx, frame, filename)
	if err != nil {
		return err
	}
	if !added {
		h.logger.Printf("%s (id = %s) is already waiting for refresh", filename, frame)
	}
	return nil
}

func (h *hook) Corrected(ctx context.Context, frame domain.FrameID, filename string, changed []string) (bool, error) {
	if !Relevant(changed) {
		return false, nil
	}
	if _, err := h.queue.Enqueue(ctx, frame, filename); err != nil {
		return false, err
	}
	return true, nil
}

// Relevant reports whether any of changed fields takes part in association.
//
// Besides descriptors, canonicality and type tags of frames are matched in
// lookups.
func Relevant(changed []string) bool {
	for _, c := range changed {
		if c == "canonical" || c == "types" || field.Field(c).IsKnown() {
			return true
		}
	}
	return false
}
