package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/order"
)

type invoiceRow struct {
	ID         string    `db:"id"`
	CourseID   string    `db:"course_id"`
	UserID     string    `db:"user_id"`
	Price      float64   `db:"price"`
	CreatedAt  time.Time `db:"created_at"`
	CourseName string    `db:"course_name"`
	UserName   string    `db:"user_name"`
	UserEmail  string    `db:"user_email"`
}

type orderRepository struct {
	db *sqlx.DB
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *sqlx.DB) *orderRepository {
	return &orderRepository{db: db}
}

// PurchaseCourse runs in a single transaction: either the order is recorded, the course added to the user
// and its purchase count incremented, or nothing is written.
func (repo *orderRepository) PurchaseCourse(ctx context.Context, o order.Order) (_ order.Order, err error) {
	o.ID = uuid.New().String()
	o.CreatedAt = o.CreatedAt.UTC()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "beginning purchase")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = incrementPurchased(ctx, tx, o.CourseID); err != nil {
		return order.Order{}, err
	}
	if err = addUserCourse(ctx, tx, o.UserID, o.CourseID); err != nil {
		return order.Order{}, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO "order" (id, course_id, user_id, price, created_at) VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.CourseID, o.UserID, o.Price, o.CreatedAt)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return order.Order{}, order.ErrAlreadyPurchased
		}
		return order.Order{}, errors.Wrap(err, "inserting order")
	}
	if err = tx.Commit(); err != nil {
		return order.Order{}, errors.Wrap(err, "committing purchase")
	}
	return o, nil
}

func (repo *orderRepository) QueryInvoices(ctx context.Context, filter *order.QueryFilter) ([]order.Invoice, error) {
	var where whereBuilder

	if filter != nil {
		if filter.UserID != "" {
			if !isValidID(filter.UserID) {
				return []order.Invoice{}, nil
			}
			where.add(`o.user_id = ?`, filter.UserID)
		}
		if filter.CourseID != "" {
			if !isValidID(filter.CourseID) {
				return []order.Invoice{}, nil
			}
			where.add(`o.course_id = ?`, filter.CourseID)
		}
		if !filter.CreatedFrom.IsZero() {
			where.add(`o.created_at >= ?`, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			where.add(`o.created_at <= ?`, filter.CreatedTo.UTC())
		}
		if filter.Search != "" {
			where.add(`(c.name ILIKE ? OR u.name ILIKE ? OR u.email ILIKE ?)`, likePattern(filter.Search))
		}
	}

	query := `SELECT o.id, o.course_id, o.user_id, o.price, o.created_at,
		c.name AS course_name, u.name AS user_name, COALESCE(u.email, '') AS user_email
		FROM "order" o
		JOIN course c ON c.id = o.course_id
		JOIN "user" u ON u.id = o.user_id` + where.String() + `
		ORDER BY o.created_at DESC`

	var rows []invoiceRow
	if err := repo.db.SelectContext(ctx, &rows, query, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying invoices")
	}
	invoices := make([]order.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, order.Invoice{
			Order: order.Order{
				ID:        row.ID,
				CourseID:  row.CourseID,
				UserID:    row.UserID,
				Price:     row.Price,
				CreatedAt: row.CreatedAt.UTC(),
			},
			CourseName: row.CourseName,
			UserName:   row.UserName,
			UserEmail:  row.UserEmail,
		})
	}
	return invoices, nil
}
