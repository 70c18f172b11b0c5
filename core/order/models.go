package order

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

type Order struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	Price     float64   `json:"price"`      // course price at purchase time
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Invoice is an Order joined with its course & user details, for the admin dashboard.
type Invoice struct {
	Order
	CourseName string `json:"course_name"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
}

// NewOrder contains information needed to purchase a course.
type NewOrder struct {
	CourseID string `json:"course_id" validate:"required"`
}

func (no *NewOrder) Validate(validate *validator.Validate) error {
	no.CourseID = core.CleanString(no.CourseID)
	return validate.Struct(no)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	UserID      string    `query:"user_id"`
	CourseID    string    `query:"course_id"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.UserID = core.CleanString(qf.UserID)
	qf.CourseID = core.CleanString(qf.CourseID)
}

// confirmationData is the order_confirmation email template data.
type confirmationData struct {
	OrderID    string
	CourseID   string
	CourseName string
	UserName   string
	Price      float64
	Date       string
}
