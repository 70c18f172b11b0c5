package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrNotFound = errors.New("course not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields (see QueryFilter.Match).
		// Courses are returned newest first unless an ordering is provided.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourses(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	c := Course{
		Name:           nc.Name,
		Description:    nc.Description,
		Categories:     nc.Categories,
		Tags:           nc.Tags,
		Level:          nc.Level,
		Price:          nc.Price,
		EstimatedPrice: nc.EstimatedPrice,
		Thumbnail:      nc.Thumbnail,
		DemoURL:        nc.DemoURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	c, err := svc.repo.CreateCourse(ctx, c)
	return c, errors.Wrap(err, "creating course")
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx, filter, ordering)
	return courses, errors.Wrap(err, "querying courses")
}

// QueryAll returns every course, newest first.
func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.Query(ctx, nil, nil)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	c = uc.apply(c)
	c.UpdatedAt = time.Now().UTC()
	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCourses(ctx, ids...)
	return errors.Wrap(err, "deleting courses")
}
