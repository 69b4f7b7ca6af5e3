// Package static serves entity snapshots from a YAML fixture file. The
// file is re-read on every fetch so it can be edited while running.
package static

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/logger"
	"gopkg.in/yaml.v3"
)

// ErrNoPath is returned when the source has no fixture file.
var ErrNoPath = errors.New("static snapshot path is required")

type fixture struct {
	Entities []entityYAML `yaml:"entities" validate:"dive"`
}

type entityYAML struct {
	ID          string            `yaml:"id" validate:"required"`
	Label       string            `yaml:"label"`
	Status      string            `yaml:"status" validate:"required"`
	Coordinate  *model.Coordinate `yaml:"coordinate"`
	LastContact string            `yaml:"last_contact"`
}

// Source reads a fixture of the form:
//
//	entities:
//	  - id: "1"
//	    label: Mary Johnson
//	    status: safe
//	    coordinate: {lng: -74.006, lat: 40.7128}
//	    last_contact: 2 minutes ago
type Source struct {
	path     string
	validate *validator.Validate
	log      logger.Logger
}

// New creates a source reading path.
func New(path string, log logger.Logger) (*Source, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	if log == nil {
		log = logger.GetOrNoop().Named("source.static")
	}
	return &Source{path: path, validate: validator.New(), log: log}, nil
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string { return "static" }

// Fetch parses the fixture. Entries with an unknown status are dropped.
func (s *Source) Fetch(ctx context.Context) ([]model.Entity, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot fixture: %w", err)
	}
	var f fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse snapshot fixture %s: %w", s.path, err)
	}
	if err := s.validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid snapshot fixture %s: %w", s.path, err)
	}

	out := make([]model.Entity, 0, len(f.Entities))
	for _, e := range f.Entities {
		status, err := model.ParseStatus(e.Status)
		if err != nil {
			s.log.Warn(ctx, "dropping fixture entity", logger.String("id", e.ID), logger.Error(err))
			continue
		}
		out = append(out, model.Entity{
			ID:          e.ID,
			Label:       e.Label,
			Status:      status,
			Coordinate:  e.Coordinate,
			LastContact: e.LastContact,
		})
	}
	return out, nil
}
