// Package association associates calibrations to target frames.
//
// Associations are served from the cache when the target is refreshed and
// not waiting for another refresh. Otherwise they are looked up live with
// the instrument's policy.
package association

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	kcache "github.com/fitsarchive/calassoc/pkg/domain/calcache/db"
	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/fitsarchive/calassoc/pkg/domain/frame"
	kframe "github.com/fitsarchive/calassoc/pkg/domain/frame/db"
	kqueue "github.com/fitsarchive/calassoc/pkg/domain/queue/db"
	"github.com/fitsarchive/calassoc/pkg/policy"
	"github.com/fitsarchive/calassoc/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxClosureDepth is how many times Closure follows calibrations of
// calibrations.
const MaxClosureDepth = 4

// Association is calibrations of a caltype, best first.
type Association struct {
	Caltype domain.Caltype
	Cals    []domain.Frame
}

type Service interface {
	// Resolve finds the frame a selection (filename, data label or id) stands for.
	//
	// When more than one frame match, the one with the highest-sorting
	// filename is chosen, and a warning is logged.
	//
	// Returns
	//
	// - domain.Frame
	//
	// - error: errors.ErrMissing when nothing matches.
	Resolve(ctx context.Context, selection string) (domain.Frame, error)

	// Associate returns calibrations of the target for each applicable
	// caltype, in report order.
	//
	// When caltype is given, only that is reported. It is looked up even when
	// it is not applicable to the target, though live, since only applicable
	// caltypes are cached. An unknown caltype is errors.ErrUsage.
	//
	// Calibrations which failed QA are never returned.
	//
	// Targets without instrument or observation time, or failed QA, have no
	// associations.
	Associate(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) ([]Association, error)

	// CacheAssociations looks calibrations of the target up and writes them
	// to the cache, replacing what was there.
	//
	// Returns
	//
	// - error: transient errors are worth retrying. Others, like errors.ErrConfiguration
	// or domain.ErrBundleMalformed, will happen again.
	CacheAssociations(ctx context.Context, target domain.FrameID) error

	// ApplicableCaltypes returns caltypes applicable to the target.
	ApplicableCaltypes(ctx context.Context, target domain.FrameID) ([]domain.Caltype, error)

	// Closure returns calibrations of the targets, and calibrations of them
	// up to depth times (at most MaxClosureDepth), without duplicates.
	//
	// Calibrations of calibrations are followed only when caltype is nil.
	Closure(ctx context.Context, targets []domain.FrameID, caltype *domain.Caltype, depth int) ([]domain.Frame, error)
}

type service struct {
	frames   kframe.FrameInterface
	cache    kcache.CacheInterface
	queue    kqueue.QueueInterface
	registry *policy.Registry

	queryTimeout time.Duration
	logger       *log.Logger
	tracer       trace.Tracer
}

type Option func(*service)

// WithQueryTimeout bounds each calibration lookup.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *service) {
		s.queryTimeout = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *service) {
		s.logger = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *service) {
		s.tracer = t
	}
}

func New(
	frames kframe.FrameInterface,
	cache kcache.CacheInterface,
	queue kqueue.QueueInterface,
	registry *policy.Registry,
	options ...Option,
) Service {
	s := &service{
		frames:       frames,
		cache:        cache,
		queue:        queue,
		registry:     registry,
		queryTimeout: 30 * time.Second,
		logger:       log.Default(),
		tracer:       otel.Tracer(tracing.Name),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

func (s *service) start(ctx context.Context, name string, target domain.FrameID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.Int64("frame.id", int64(target))))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *service) Resolve(ctx context.Context, selection string) (domain.Frame, error) {
	frames, err := s.frames.Find(ctx, selection)
	if err != nil {
		return domain.Frame{}, err
	}
	picked, ambiguous, ok := frame.Pick(frames)
	if !ok {
		return domain.Frame{}, fmt.Errorf("%w: no frame for %q", domerr.ErrMissing, selection)
	}
	if ambiguous {
		s.logger.Printf(
			"WARNING: %d frames match %q. %s (id = %s) is chosen",
			len(frames), selection, picked.Filename, picked.ID,
		)
	}
	return picked, nil
}

// target prepares the frame for lookups.
//
// ok is false when the frame has no associations.
func (s *service) target(ctx context.Context, id domain.FrameID) (*policy.Instrument, policy.Target, bool, error) {
	f, err := s.frames.Get(ctx, id)
	if err != nil {
		return nil, policy.Target{}, false, err
	}
	if !f.Eligible() {
		return nil, policy.Target{}, false, nil
	}
	ins, err := s.registry.For(f.Instrument())
	if err != nil {
		return nil, policy.Target{}, false, err
	}
	t, err := ins.Target(f, s.frames)
	if err != nil {
		return nil, policy.Target{}, false, err
	}
	return ins, t, true, nil
}

func (s *service) ApplicableCaltypes(ctx context.Context, target domain.FrameID) ([]domain.Caltype, error) {
	ins, t, ok, err := s.target(ctx, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.Caltype{}, nil
	}
	return ins.ApplicableCaltypes(t), nil
}

func (s *service) Associate(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) (_ []Association, err error) {
	ctx, span := s.start(ctx, "associate", target)
	defer func() { end(span, err) }()
	if caltype != nil {
		span.SetAttributes(attribute.String("caltype", caltype.String()))
	}

	ins, t, ok, err := s.target(ctx, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Association{}, nil
	}

	caltypes := ins.ApplicableCaltypes(t)
	cacheable := true
	if caltype != nil {
		if !caltype.IsKnown() {
			return nil, fmt.Errorf("%w: %w: %s", domerr.ErrUsage, domain.ErrUnknownCaltype, *caltype)
		}
		cacheable = slices.Contains(caltypes, *caltype)
		caltypes = []domain.Caltype{*caltype}
		if !cacheable && !ins.Serves(*caltype) {
			return []Association{{Caltype: *caltype, Cals: []domain.Frame{}}}, nil
		}
	}
	if len(caltypes) == 0 {
		return []Association{}, nil
	}

	// caltypes out of the applicable set are never cached.
	if !cacheable {
		span.SetAttributes(attribute.String("association.source", "live"))
		return s.live(ctx, ins, t, caltypes)
	}
	if assocs, ok := s.fromCache(ctx, target, caltypes, caltype); ok {
		span.SetAttributes(attribute.String("association.source", "cache"))
		return assocs, nil
	}
	span.SetAttributes(attribute.String("association.source", "live"))
	return s.live(ctx, ins, t, caltypes)
}

func (s *service) live(ctx context.Context, ins *policy.Instrument, t policy.Target, caltypes []domain.Caltype) ([]Association, error) {
	ret := make([]Association, 0, len(caltypes))
	for _, c := range caltypes {
		cals, err := s.lookup(ctx, ins, t, c)
		if err != nil {
			if domerr.IsTransient(err) {
				return nil, domerr.Transient(err)
			}
			return nil, err
		}
		ret = append(ret, Association{Caltype: c, Cals: cals})
	}
	return ret, nil
}

// fromCache reads associations from the cache.
//
// ok is false when the cache is not to be trusted: the target is not
// refreshed yet, is waiting for a refresh, or the cache is unreachable.
func (s *service) fromCache(ctx context.Context, target domain.FrameID, caltypes []domain.Caltype, caltype *domain.Caltype) ([]Association, bool) {
	pending, err := s.queue.Pending(ctx, target)
	if err != nil {
		s.logger.Printf("failed to check refresh queue for %s: %s", target, err)
		return nil, false
	}
	if pending {
		return nil, false
	}

	cached, err := s.cache.Lookup(ctx, target, caltype)
	if err != nil {
		s.logger.Printf("failed to read cache for %s: %s", target, err)
		return nil, false
	}
	if !cached.Fresh() {
		return nil, false
	}

	ids := make([]domain.FrameID, 0, len(cached.Entries))
	for _, e := range cached.Entries {
		ids = append(ids, e.Cal)
	}
	frames, err := s.frames.GetMany(ctx, ids)
	if err != nil {
		s.logger.Printf("failed to read cached calibrations of %s: %s", target, err)
		return nil, false
	}
	byID := map[domain.FrameID]domain.Frame{}
	for _, f := range frames {
		byID[f.ID] = f
	}

	ret := make([]Association, 0, len(caltypes))
	for _, c := range caltypes {
		cals := []domain.Frame{}
		for _, e := range cached.Caltype(c) {
			f, ok := byID[e.Cal]
			if !ok || f.QAState() == domain.QAFail {
				continue
			}
			cals = append(cals, f)
		}
		ret = append(ret, Association{Caltype: c, Cals: cals})
	}
	return ret, true
}

// lookup runs the policy's lookup of the caltype with the query deadline.
func (s *service) lookup(ctx context.Context, ins *policy.Instrument, t policy.Target, c domain.Caltype) ([]domain.Frame, error) {
	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	cals, err := ins.Lookup(qctx, t, c, 0)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, domerr.Transient(fmt.Errorf("%s of %s: query timeout: %w", c, t.Frame.ID, err))
		}
		return nil, fmt.Errorf("%s of %s: %w", c, t.Frame.ID, err)
	}

	ret := make([]domain.Frame, 0, len(cals))
	for _, f := range cals {
		if f.QAState() == domain.QAFail || f.ID == t.Frame.ID {
			continue
		}
		ret = append(ret, f)
	}
	if c.IsPinned() && 1 < len(ret) {
		ret = ret[:1]
	}
	return ret, nil
}

func (s *service) CacheAssociations(ctx context.Context, target domain.FrameID) (err error) {
	ctx, span := s.start(ctx, "cache associations", target)
	defer func() { end(span, err) }()

	ins, t, ok, err := s.target(ctx, target)
	if err != nil {
		return err
	}
	if !ok {
		// associations written before the target turned ineligible are stale.
		return s.cache.Invalidate(ctx, target)
	}

	entries := []domain.CacheEntry{}
	for _, c := range ins.ApplicableCaltypes(t) {
		cals, err := s.lookup(ctx, ins, t, c)
		if err != nil {
			return err
		}
		ids := make([]domain.FrameID, len(cals))
		for i, f := range cals {
			ids[i] = f.ID
		}
		entries = append(entries, domain.Rank(target, c, ids)...)
	}
	span.SetAttributes(attribute.Int("association.count", len(entries)))

	return s.cache.Replace(ctx, target, entries)
}

func (s *service) Closure(ctx context.Context, targets []domain.FrameID, caltype *domain.Caltype, depth int) ([]domain.Frame, error) {
	depth = max(0, min(depth, MaxClosureDepth))
	if caltype != nil {
		depth = 0
	}

	ret := []domain.Frame{}
	seen := map[domain.FrameID]struct{}{}
	level := targets
	for d := 0; d <= depth && 0 < len(level); d++ {
		next := []domain.FrameID{}
		for _, t := range level {
			assocs, err := s.Associate(ctx, t, caltype)
			if err != nil {
				return nil, err
			}
			for _, a := range assocs {
				for _, cal := range a.Cals {
					if _, ok := seen[cal.ID]; ok {
						continue
					}
					seen[cal.ID] = struct{}{}
					ret = append(ret, cal)
					next = append(next, cal.ID)
				}
			}
		}
		level = next
	}
	return ret, nil
}
