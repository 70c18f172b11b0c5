package order

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

const (
	confirmationTmpl = "order_confirmation"
	dateLayout       = "Jan 2, 2006"
)

var (
	// errors
	ErrAlreadyPurchased = errors.New("you have already purchased this course")
)

type (
	Repository interface {
		// PurchaseCourse records the order, adds the course to the user's courses and increments its purchase count,
		// all or nothing. It returns ErrAlreadyPurchased if the user has an order for the course,
		// course.ErrNotFound or user.ErrNotFound if either is gone.
		PurchaseCourse(ctx context.Context, o Order) (Order, error)
		// QueryInvoices returns the invoices matching the filter, newest first.
		// QueryFilter.Search does a case-insensitive match on one of course name, user name or user email.
		QueryInvoices(ctx context.Context, filter *QueryFilter) ([]Invoice, error)
	}

	Service struct {
		repo      Repository
		courseSvc *course.Service
		mailSvc   core.EmailService
	}
)

func NewService(repo Repository, courseSvc *course.Service, mailSvc core.EmailService) *Service {
	return &Service{
		repo:      repo,
		courseSvc: courseSvc,
		mailSvc:   mailSvc,
	}
}

// Create purchases the course for usr: the order is recorded, the course is added to the user's courses
// and its purchase count is incremented in one go, then a confirmation email is sent.
func (svc *Service) Create(ctx context.Context, usr user.User, no NewOrder) (Order, error) {
	courseNotFound := func(err error) error {
		return core.NewValidationError(err, core.FieldError{Field: "course_id", Error: course.ErrNotFound.Error()})
	}
	alreadyPurchased := core.NewValidationError(ErrAlreadyPurchased, core.FieldError{Field: "course_id", Error: ErrAlreadyPurchased.Error()})

	c, err := svc.courseSvc.GetByID(ctx, no.CourseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return Order{}, courseNotFound(err)
		}
		return Order{}, errors.Wrap(err, "getting course")
	}
	if usr.OwnsCourse(c.ID) {
		return Order{}, alreadyPurchased
	}

	o, err := svc.repo.PurchaseCourse(ctx, Order{
		CourseID:  c.ID,
		UserID:    usr.ID,
		Price:     c.Price,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		switch errors.Cause(err) {
		case ErrAlreadyPurchased:
			return Order{}, alreadyPurchased
		case course.ErrNotFound:
			return Order{}, courseNotFound(err)
		}
		return Order{}, errors.Wrap(err, "purchasing course")
	}

	svc.sendConfirmationMail(usr, c, o)
	return o, nil
}

func (svc *Service) sendConfirmationMail(usr user.User, c course.Course, o Order) {
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Order Confirmation",
		TemplateName: confirmationTmpl,
		TemplateData: confirmationData{
			OrderID:    o.ID,
			CourseID:   c.ID,
			CourseName: c.Name,
			UserName:   usr.Name,
			Price:      o.Price,
			Date:       o.CreatedAt.Format(dateLayout),
		},
	})
}

func (svc *Service) Invoices(ctx context.Context, filter *QueryFilter) ([]Invoice, error) {
	invoices, err := svc.repo.QueryInvoices(ctx, filter)
	return invoices, errors.Wrap(err, "querying invoices")
}
