package catalog

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/layout"
)

// FilterState is the storefront filter picked by the visitor.
type FilterState struct {
	Category string `query:"category"`
	Search   string `query:"title"`
}

// Clean trims the filter values and defaults Category to AllCategories.
func (fs *FilterState) Clean() {
	fs.Category = core.CleanString(fs.Category)
	fs.Search = core.CleanString(fs.Search)
	if fs.Category == "" {
		fs.Category = AllCategories
	}
}

type Catalog struct {
	Categories []string        `json:"categories"`
	Courses    []course.Course `json:"courses"`
}

type Service struct {
	courseSvc *course.Service
	layoutSvc *layout.Service
}

func NewService(courseSvc *course.Service, layoutSvc *layout.Service) *Service {
	return &Service{courseSvc: courseSvc, layoutSvc: layoutSvc}
}

// Catalog returns the category chips of the whole catalog and the courses matching the filter.
func (svc *Service) Catalog(ctx context.Context, filter FilterState) (Catalog, error) {
	filter.Clean()

	courses, err := svc.courseSvc.QueryAll(ctx)
	if err != nil {
		return Catalog{}, errors.Wrap(err, "loading courses")
	}
	curated, err := svc.layoutSvc.Categories(ctx)
	if err != nil {
		return Catalog{}, errors.Wrap(err, "loading curated categories")
	}

	return Catalog{
		Categories: AggregateCategories(curated, courses),
		Courses:    FilterCourses(courses, filter.Category, filter.Search),
	}, nil
}

// Categories returns the category chips of the whole catalog.
func (svc *Service) Categories(ctx context.Context) ([]string, error) {
	courses, err := svc.courseSvc.QueryAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading courses")
	}
	curated, err := svc.layoutSvc.Categories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading curated categories")
	}
	return AggregateCategories(curated, courses), nil
}
