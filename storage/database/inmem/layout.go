package inmemdb

import (
	"context"

	"github.com/trezcool/elimu/core/layout"
)

type layoutRepository struct {
	db *DB
}

var _ layout.Repository = (*layoutRepository)(nil) // interface compliance check

func NewLayoutRepository(db *DB) *layoutRepository {
	return &layoutRepository{db: db}
}

func (repo *layoutRepository) tbl() *layoutTable {
	return repo.db.layout
}

func (repo *layoutRepository) CreateLayout(ctx context.Context, l layout.Layout) (layout.Layout, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.table[l.Type]; ok {
		return layout.Layout{}, layout.ErrLayoutExist
	}
	l.ID = newID()
	l = copyLayout(l)
	tbl.table[l.Type] = &l
	return copyLayout(l), nil
}

func (repo *layoutRepository) GetLayout(ctx context.Context, typ string) (layout.Layout, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	if l, ok := tbl.table[typ]; ok {
		return copyLayout(*l), nil
	}
	return layout.Layout{}, layout.ErrNotFound
}

func (repo *layoutRepository) UpdateLayout(ctx context.Context, l layout.Layout) (layout.Layout, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.table[l.Type]; !ok {
		return layout.Layout{}, layout.ErrNotFound
	}
	l = copyLayout(l)
	tbl.table[l.Type] = &l
	return copyLayout(l), nil
}

func copyLayout(l layout.Layout) layout.Layout {
	if l.Banner != nil {
		banner := *l.Banner
		l.Banner = &banner
	}
	if l.FAQ != nil {
		l.FAQ = append([]layout.FAQItem(nil), l.FAQ...)
	}
	if l.Categories != nil {
		l.Categories = append([]layout.Category(nil), l.Categories...)
	}
	return l
}
