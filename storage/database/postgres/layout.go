package pgrepos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core/layout"
)

const (
	layoutColumns = `id, type, data, created_at, updated_at`

	uniqueViolation = pq.ErrorCode("23505")
)

type layoutRow struct {
	ID        string         `db:"id"`
	Type      string         `db:"type"`
	Data      types.JSONText `db:"data"`
	CreatedAt null.Time      `db:"created_at"`
	UpdatedAt null.Time      `db:"updated_at"`
}

// layoutData is the JSONB document stored in layout.data
type layoutData struct {
	Banner     *layout.Banner    `json:"banner,omitempty"`
	FAQ        []layout.FAQItem  `json:"faq,omitempty"`
	Categories []layout.Category `json:"categories,omitempty"`
}

type layoutRepository struct {
	db *sqlx.DB
}

var _ layout.Repository = (*layoutRepository)(nil) // interface compliance check

func NewLayoutRepository(db *sqlx.DB) *layoutRepository {
	return &layoutRepository{db: db}
}

func (repo *layoutRepository) toRow(l layout.Layout) (layoutRow, error) {
	data, err := json.Marshal(layoutData{Banner: l.Banner, FAQ: l.FAQ, Categories: l.Categories})
	if err != nil {
		return layoutRow{}, errors.Wrap(err, "encoding layout data")
	}
	return layoutRow{
		ID:        l.ID,
		Type:      l.Type,
		Data:      types.JSONText(data),
		CreatedAt: null.NewTime(l.CreatedAt.UTC(), !l.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(l.UpdatedAt.UTC(), !l.UpdatedAt.IsZero()),
	}, nil
}

func (repo *layoutRepository) fromRow(row layoutRow) (layout.Layout, error) {
	var data layoutData
	if err := row.Data.Unmarshal(&data); err != nil {
		return layout.Layout{}, errors.Wrap(err, "decoding layout data")
	}
	return layout.Layout{
		ID:         row.ID,
		Type:       row.Type,
		Banner:     data.Banner,
		FAQ:        data.FAQ,
		Categories: data.Categories,
		CreatedAt:  row.CreatedAt.Time.UTC(),
		UpdatedAt:  row.UpdatedAt.Time.UTC(),
	}, nil
}

func (repo *layoutRepository) CreateLayout(ctx context.Context, l layout.Layout) (layout.Layout, error) {
	l.ID = uuid.New().String()
	row, err := repo.toRow(l)
	if err != nil {
		return layout.Layout{}, err
	}
	_, err = repo.db.NamedExecContext(ctx,
		`INSERT INTO layout (`+layoutColumns+`) VALUES (:id, :type, :data, :created_at, :updated_at)`, row)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return layout.Layout{}, layout.ErrLayoutExist
		}
		return layout.Layout{}, errors.Wrap(err, "inserting layout")
	}
	return repo.fromRow(row)
}

func (repo *layoutRepository) GetLayout(ctx context.Context, typ string) (layout.Layout, error) {
	var row layoutRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+layoutColumns+` FROM layout WHERE type = $1`, typ); err != nil {
		return layout.Layout{}, trapNoRowsErr(err, layout.ErrNotFound, "getting layout")
	}
	return repo.fromRow(row)
}

func (repo *layoutRepository) UpdateLayout(ctx context.Context, l layout.Layout) (layout.Layout, error) {
	row, err := repo.toRow(l)
	if err != nil {
		return layout.Layout{}, err
	}
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE layout SET data = :data, updated_at = :updated_at WHERE type = :type`, row)
	if err != nil {
		return layout.Layout{}, errors.Wrap(err, "updating layout")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return layout.Layout{}, layout.ErrNotFound
	}
	return repo.fromRow(row)
}
