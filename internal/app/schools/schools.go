// Package schools manages the schools results are credited to.
package schools

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/okian/sportsmeet/internal/adapters/repository"
	"github.com/okian/sportsmeet/internal/domain/errs"
	"github.com/okian/sportsmeet/internal/domain/keys"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/pkg/logger"
	"github.com/okian/sportsmeet/pkg/metrics"
)

// Store is the school table surface.
type Store interface {
	Create(ctx context.Context, s model.School) error
	List(ctx context.Context) ([]model.School, error)
	Delete(ctx context.Context, schoolID string) error
}

// ScoreCounter counts score records crediting a school.
type ScoreCounter interface {
	CountBySchool(ctx context.Context, schoolName string) (int, error)
}

// Registry creates, lists and deletes schools.
type Registry struct {
	schools Store
	scores  ScoreCounter
	now     func() time.Time
	log     logger.Logger
}

// New creates a Registry. now may be nil.
func New(schools Store, scores ScoreCounter, now func() time.Time, l logger.Logger) *Registry {
	if now == nil {
		now = time.Now
	}
	if l == nil {
		l = logger.Named("schools")
	}
	return &Registry{schools: schools, scores: scores, now: now, log: l}
}

func validName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.Validation(op, "school name is required")
	}
	if keys.Normalize(name) == "" {
		return "", errs.Validation(op, "school name %q has no letters or digits", name)
	}
	return name, nil
}

// Create adds a school. Names that normalise to the same id conflict.
func (r *Registry) Create(ctx context.Context, name string) (s model.School, err error) {
	const op = "schools.create"
	defer func() { metrics.RecordSchoolChange("create", metrics.Outcome(err, errs.IsCallerError)) }()

	name, err = validName(op, name)
	if err != nil {
		return model.School{}, err
	}
	s = model.School{SchoolID: keys.SchoolID(name), SchoolName: name, CreatedAt: r.now().UTC()}
	if err := r.schools.Create(ctx, s); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return model.School{}, errs.Newf(op, errs.ErrConflict, "school already exists: %s", s.SchoolID)
		}
		return model.School{}, errs.Wrap(op, err)
	}
	r.log.Info(ctx, "school created", logger.String("school_id", s.SchoolID))
	return s, nil
}

// List returns every school sorted by name.
func (r *Registry) List(ctx context.Context) ([]model.School, error) {
	list, err := r.schools.List(ctx)
	if err != nil {
		return nil, errs.Wrap("schools.list", err)
	}
	return list, nil
}

// Delete removes a school that no score record references.
func (r *Registry) Delete(ctx context.Context, name string) (err error) {
	const op = "schools.delete"
	defer func() { metrics.RecordSchoolChange("delete", metrics.Outcome(err, errs.IsCallerError)) }()

	name, err = validName(op, name)
	if err != nil {
		return err
	}
	refs, err := r.scores.CountBySchool(ctx, name)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if refs > 0 {
		return errs.Newf(op, errs.ErrConflict, "school %s is referenced by %d score records", name, refs)
	}

	id := keys.SchoolID(name)
	if err := r.schools.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return errs.Newf(op, errs.ErrNotFound, "school %s not found", id)
		}
		return errs.Wrap(op, err)
	}
	r.log.Info(ctx, "school deleted", logger.String("school_id", id))
	return nil
}
