package pgrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

const courseColumns = `id, name, description, categories, tags, level, price, estimated_price, thumbnail, demo_url, rating, purchased, created_at, updated_at`

var courseOrderColumns = map[string]string{
	"name":       "lower(name)",
	"level":      "level",
	"price":      "price",
	"rating":     "rating",
	"purchased":  "purchased",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type courseRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Description    null.String    `db:"description"`
	Categories     pq.StringArray `db:"categories"`
	Tags           pq.StringArray `db:"tags"`
	Level          string         `db:"level"`
	Price          float64        `db:"price"`
	EstimatedPrice null.Float64   `db:"estimated_price"`
	Thumbnail      null.String    `db:"thumbnail"`
	DemoURL        null.String    `db:"demo_url"`
	Rating         float64        `db:"rating"`
	Purchased      int            `db:"purchased"`
	CreatedAt      null.Time      `db:"created_at"`
	UpdatedAt      null.Time      `db:"updated_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) toRow(c course.Course) courseRow {
	row := courseRow{
		ID:             c.ID,
		Name:           c.Name,
		Description:    c.Description,
		Categories:     pq.StringArray(c.Categories),
		Tags:           pq.StringArray(c.Tags),
		Level:          c.Level,
		Price:          c.Price,
		EstimatedPrice: c.EstimatedPrice,
		Thumbnail:      c.Thumbnail,
		DemoURL:        c.DemoURL,
		Rating:         c.Rating,
		Purchased:      c.Purchased,
		CreatedAt:      null.NewTime(c.CreatedAt.UTC(), !c.CreatedAt.IsZero()),
		UpdatedAt:      null.NewTime(c.UpdatedAt.UTC(), !c.UpdatedAt.IsZero()),
	}
	if row.Categories == nil {
		row.Categories = pq.StringArray{}
	}
	if row.Tags == nil {
		row.Tags = pq.StringArray{}
	}
	return row
}

func (repo *courseRepository) fromRow(row courseRow) course.Course {
	return course.Course{
		ID:             row.ID,
		Name:           row.Name,
		Description:    row.Description,
		Categories:     course.NewLabels(row.Categories...),
		Tags:           course.NewLabels(row.Tags...),
		Level:          row.Level,
		Price:          row.Price,
		EstimatedPrice: row.EstimatedPrice,
		Thumbnail:      row.Thumbnail,
		DemoURL:        row.DemoURL,
		Rating:         row.Rating,
		Purchased:      row.Purchased,
		CreatedAt:      row.CreatedAt.Time.UTC(),
		UpdatedAt:      row.UpdatedAt.Time.UTC(),
	}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	row := repo.toRow(c)
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO course (`+courseColumns+`)
		VALUES (:id, :name, :description, :categories, :tags, :level, :price, :estimated_price, :thumbnail, :demo_url,
		:rating, :purchased, :created_at, :updated_at)`,
		row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.fromRow(row), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var where whereBuilder

	if filter != nil {
		if filter.Level != "" {
			where.add(`level = ?`, filter.Level)
		}
		if filter.Category != "" {
			where.add(`categories @> ARRAY[?]::text[]`, filter.Category)
		}
		// courses with Name, Description, a Tag or a Category matching the search keyword
		if filter.Search != "" {
			where.add(`(name ILIKE ? OR description ILIKE ?
				OR EXISTS (SELECT 1 FROM unnest(tags) tag WHERE tag ILIKE ?)
				OR EXISTS (SELECT 1 FROM unnest(categories) cat WHERE cat ILIKE ?))`, likePattern(filter.Search))
		}
	}

	query := `SELECT ` + courseColumns + ` FROM course` + where.String() +
		` ORDER BY ` + core.OrderBy(ordering, courseOrderColumns, "created_at DESC")

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.fromRow(row))
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !isValidID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+courseColumns+` FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return repo.fromRow(row), nil
}

// UpdateCourse leaves `purchased` untouched, see orderRepository.PurchaseCourse.
func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	if !isValidID(c.ID) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	stmt, err := repo.db.PrepareNamedContext(ctx,
		`UPDATE course SET name = :name, description = :description, categories = :categories, tags = :tags,
		level = :level, price = :price, estimated_price = :estimated_price, thumbnail = :thumbnail, demo_url = :demo_url,
		rating = :rating, updated_at = :updated_at
		WHERE id = :id
		RETURNING `+courseColumns)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "preparing course update")
	}
	defer stmt.Close()

	if err = stmt.GetContext(ctx, &row, repo.toRow(c)); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "updating course")
	}
	return repo.fromRow(row), nil
}

func incrementPurchased(ctx context.Context, exec sqlx.ExecerContext, id string) error {
	if !isValidID(id) {
		return course.ErrNotFound
	}
	res, err := exec.ExecContext(ctx, `UPDATE course SET purchased = purchased + 1 WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "incrementing course purchases")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) DeleteCourses(ctx context.Context, ids ...string) (int, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting courses")
}
