package layout

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrNotFound    = errors.New("layout not found")
	ErrLayoutExist = errors.New("a layout of this type already exists")
)

type (
	Repository interface {
		CreateLayout(ctx context.Context, l Layout) (Layout, error)
		GetLayout(ctx context.Context, typ string) (Layout, error)
		UpdateLayout(ctx context.Context, l Layout) (Layout, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create adds the layout of type nl.Type. There is one layout per type: the repository has the last word
// when two creations race.
func (svc *Service) Create(ctx context.Context, nl NewLayout) (Layout, error) {
	layoutExists := core.NewValidationError(ErrLayoutExist, core.FieldError{Field: "type", Error: ErrLayoutExist.Error()})
	if _, err := svc.repo.GetLayout(ctx, nl.Type); err == nil {
		return Layout{}, layoutExists
	} else if errors.Cause(err) != ErrNotFound {
		return Layout{}, errors.Wrap(err, "checking layout uniqueness")
	}

	now := time.Now().UTC()
	l := nl.Content.apply(nl.Type, Layout{CreatedAt: now, UpdatedAt: now})
	l, err := svc.repo.CreateLayout(ctx, l)
	if err != nil {
		if errors.Cause(err) == ErrLayoutExist {
			return Layout{}, layoutExists
		}
		return Layout{}, errors.Wrap(err, "creating layout")
	}
	return l, nil
}

// Get returns the Layout of type `typ`. Unknown types are reported as ErrNotFound.
func (svc *Service) Get(ctx context.Context, typ string) (Layout, error) {
	if !isType(typ) {
		return Layout{}, ErrNotFound
	}
	return svc.repo.GetLayout(ctx, typ)
}

// Categories returns the curated categories. A missing Categories layout yields none.
func (svc *Service) Categories(ctx context.Context) ([]Category, error) {
	l, err := svc.Get(ctx, TypeCategories)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "getting categories layout")
	}
	return l.Categories, nil
}

func (svc *Service) Update(ctx context.Context, ul UpdateLayout) (Layout, error) {
	l, err := svc.Get(ctx, ul.Type)
	if err != nil {
		return Layout{}, err
	}
	l = ul.Content.apply(ul.Type, l)
	l.UpdatedAt = time.Now().UTC()
	l, err = svc.repo.UpdateLayout(ctx, l)
	return l, errors.Wrap(err, "updating layout")
}
