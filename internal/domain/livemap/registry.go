package livemap

import (
	"context"
	"strings"

	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/logger"
	"github.com/okian/livemap/pkg/metrics"
)

// placed is a registered marker plus its activation callback.
type placed struct {
	Marker
	style    Style
	activate func(ctx context.Context)
}

// registry maps entity identity to the live marker on the surface. It is
// the only code that adds or removes visuals.
type registry struct {
	surface   Surface
	newHandle func() string
	log       logger.Logger

	byEntity map[string]*placed
	byHandle map[string]*placed
	order    []string // entity ids in snapshot order

	// entities already reported as unplaceable, cleared once placeable again
	warned map[string]struct{}
}

func newRegistry(surface Surface, newHandle func() string, log logger.Logger) *registry {
	return &registry{
		surface:   surface,
		newHandle: newHandle,
		log:       log,
		byEntity:  make(map[string]*placed),
		byHandle:  make(map[string]*placed),
		warned:    make(map[string]struct{}),
	}
}

// clear removes every marker from the surface.
func (r *registry) clear(ctx context.Context) {
	for _, id := range r.order {
		p, ok := r.byEntity[id]
		if !ok {
			continue
		}
		r.remove(ctx, p)
	}
	r.byEntity = make(map[string]*placed)
	r.byHandle = make(map[string]*placed)
	r.order = r.order[:0]
}

func (r *registry) remove(ctx context.Context, p *placed) {
	if err := r.surface.RemoveMarker(ctx, p.Handle); err != nil {
		metrics.RecordSurfaceError("remove_marker")
		r.log.Warn(ctx, "remove marker failed",
			logger.String("entity", p.EntityID),
			logger.String("handle", p.Handle),
			logger.Error(err),
		)
	}
	delete(r.byHandle, p.Handle)
}

// rebuild destroys every marker and places one per placeable entity, in
// snapshot order. Identities must be unique; see model.Latest. onActivate
// is bound to each marker with its identity.
func (r *registry) rebuild(ctx context.Context, entities []model.Entity, onActivate func(ctx context.Context, id string)) {
	r.clear(ctx)

	for i := range entities {
		e := entities[i]
		pos, ok := e.Position()
		if !ok {
			r.skip(ctx, e)
			continue
		}
		delete(r.warned, e.ID)

		m := Marker{
			Handle:   r.newHandle(),
			EntityID: e.ID,
			Glyph:    e.Initial(),
			Color:    e.Status.Color(),
			Position: pos,
			Popup: Popup{
				Title:       strings.TrimSpace(e.Label),
				Status:      string(e.Status),
				LastContact: e.LastContact,
			},
		}
		if err := r.surface.AddMarker(ctx, m); err != nil {
			metrics.RecordSurfaceError("add_marker")
			r.log.Warn(ctx, "add marker failed", logger.String("entity", e.ID), logger.Error(err))
			continue
		}

		id := e.ID
		p := &placed{
			Marker:   m,
			style:    DefaultStyle,
			activate: func(ctx context.Context) { onActivate(ctx, id) },
		}
		r.byEntity[id] = p
		r.byHandle[m.Handle] = p
		r.order = append(r.order, id)
	}

	metrics.RecordReconciliation(len(r.byEntity))
}

func (r *registry) skip(ctx context.Context, e model.Entity) {
	metrics.RecordEntitySkipped()
	if _, seen := r.warned[e.ID]; seen {
		return
	}
	r.warned[e.ID] = struct{}{}
	r.log.Warn(ctx, "entity has no placeable coordinate; not drawn",
		logger.String("entity", e.ID),
		logger.String("label", e.Label),
	)
}

func (r *registry) byHandleLookup(handle string) (*placed, bool) {
	p, ok := r.byHandle[handle]
	return p, ok
}

// each visits the markers in snapshot order.
func (r *registry) each(fn func(p *placed)) {
	for _, id := range r.order {
		if p, ok := r.byEntity[id]; ok {
			fn(p)
		}
	}
}

func (r *registry) len() int { return len(r.byEntity) }
