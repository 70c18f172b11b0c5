package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/order"
	"github.com/trezcool/elimu/core/user"
)

type orderRepository struct {
	db *DB
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *DB) *orderRepository {
	return &orderRepository{db: db}
}

// PurchaseCourse holds the order, course & user tables locks (in this order, like QueryInvoices),
// so the order, the user's new course and the purchase count are written together or not at all.
func (repo *orderRepository) PurchaseCourse(ctx context.Context, o order.Order) (order.Order, error) {
	orders, courses, users := repo.db.order, repo.db.course, repo.db.user
	orders.Lock()
	defer orders.Unlock()
	courses.Lock()
	defer courses.Unlock()
	users.Lock()
	defer users.Unlock()

	for _, id := range orders.ids {
		if existing := orders.table[id]; existing.CourseID == o.CourseID && existing.UserID == o.UserID {
			return order.Order{}, order.ErrAlreadyPurchased
		}
	}
	c, ok := courses.table[o.CourseID]
	if !ok {
		return order.Order{}, course.ErrNotFound
	}
	usr, ok := users.table[o.UserID]
	if !ok {
		return order.Order{}, user.ErrNotFound
	}

	o.ID = newID()
	orders.table[o.ID] = &o
	orders.ids = append(orders.ids, o.ID)
	if !usr.OwnsCourse(o.CourseID) {
		usr.Courses = append(usr.Courses, o.CourseID)
	}
	c.Purchased++
	return o, nil
}

// QueryInvoices joins the orders with their course & user. Orders whose course or user is gone are skipped.
func (repo *orderRepository) QueryInvoices(ctx context.Context, filter *order.QueryFilter) ([]order.Invoice, error) {
	orders, courses, users := repo.db.order, repo.db.course, repo.db.user
	orders.RLock()
	defer orders.RUnlock()
	courses.RLock()
	defer courses.RUnlock()
	users.RLock()
	defer users.RUnlock()

	var search string
	if filter != nil {
		search = strings.ToLower(filter.Search)
	}

	invoices := make([]order.Invoice, 0)
	for _, id := range orders.ids {
		o := orders.table[id]
		c, ok := courses.table[o.CourseID]
		if !ok {
			continue
		}
		usr, ok := users.table[o.UserID]
		if !ok {
			continue
		}
		inv := order.Invoice{
			Order:      *o,
			CourseName: c.Name,
			UserName:   usr.Name,
			UserEmail:  usr.Email,
		}

		if filter != nil {
			if filter.UserID != "" && inv.UserID != filter.UserID {
				continue
			}
			if filter.CourseID != "" && inv.CourseID != filter.CourseID {
				continue
			}
			if !filter.CreatedFrom.IsZero() && inv.CreatedAt.Before(filter.CreatedFrom) {
				continue
			}
			if !filter.CreatedTo.IsZero() && inv.CreatedAt.After(filter.CreatedTo) {
				continue
			}
			if search != "" && !(core.ContainsFold(inv.CourseName, search) ||
				core.ContainsFold(inv.UserName, search) || core.ContainsFold(inv.UserEmail, search)) {
				continue
			}
		}
		invoices = append(invoices, inv)
	}

	// newest first
	sort.SliceStable(invoices, func(i, j int) bool {
		return invoices[i].CreatedAt.After(invoices[j].CreatedAt)
	})
	return invoices, nil
}
