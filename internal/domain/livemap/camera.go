package livemap

import (
	"context"
	"time"

	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/logger"
	"github.com/okian/livemap/pkg/metrics"
)

// Camera defaults.
const (
	DefaultFitPadding    = 50
	DefaultFocusZoom     = 15.0
	DefaultFocusDuration = time.Second
)

// camera issues viewport commands. It never reads the viewport back.
type camera struct {
	surface  Surface
	padding  int
	zoom     float64
	duration time.Duration
	log      logger.Logger
}

// fitAll frames every placeable entity. Reports whether a command was issued.
func (c *camera) fitAll(ctx context.Context, entities []model.Entity) bool {
	b, ok := model.BoundsOf(entities)
	if !ok {
		return false
	}
	if err := c.surface.FitBounds(ctx, b, c.padding); err != nil {
		metrics.RecordSurfaceError("fit_bounds")
		c.log.Warn(ctx, "fit bounds failed", logger.Error(err))
		return false
	}
	metrics.RecordCameraCommand("fit")
	return true
}

// center eases to the selected entity when it resolves against the
// snapshot. Reports whether a command was issued.
func (c *camera) center(ctx context.Context, entities []model.Entity, id string) bool {
	if id == "" {
		return false
	}
	e, found := model.Find(entities, id)
	if !found {
		metrics.RecordStaleSelection()
		c.log.Debug(ctx, "selection not in snapshot", logger.String("entity", id))
		return false
	}
	pos, ok := e.Position()
	if !ok {
		metrics.RecordStaleSelection()
		return false
	}
	if err := c.surface.EaseTo(ctx, pos, c.zoom, c.duration); err != nil {
		metrics.RecordSurfaceError("ease_to")
		c.log.Warn(ctx, "ease camera failed", logger.String("entity", id), logger.Error(err))
		return false
	}
	metrics.RecordCameraCommand("center")
	return true
}
