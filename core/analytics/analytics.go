// Package analytics computes the admin dashboard charts.
package analytics

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/order"
	"github.com/trezcool/elimu/core/user"
)

const (
	windowCount = 12
	window      = 28 * 24 * time.Hour
	labelLayout = "Jan 2, 2006"
)

// MonthData is the number of records created within a 28 days window ending on Month.
type MonthData struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Last12Months buckets `times` into 12 consecutive 28 days windows, oldest first.
// The most recent window ends one day after `now` (exclusive). Times outside every window are ignored.
func Last12Months(times []time.Time, now time.Time) []MonthData {
	data := make([]MonthData, 0, windowCount)
	end := now.Add(24 * time.Hour).Add(-window * (windowCount - 1))
	for i := 0; i < windowCount; i++ {
		start := end.Add(-window)
		var count int
		for _, t := range times {
			if !t.Before(start) && t.Before(end) {
				count++
			}
		}
		data = append(data, MonthData{Month: end.Format(labelLayout), Count: count})
		end = end.Add(window)
	}
	return data
}

type Service struct {
	usrSvc    *user.Service
	courseSvc *course.Service
	orderSvc  *order.Service
	nowFunc   func() time.Time
}

func NewService(usrSvc *user.Service, courseSvc *course.Service, orderSvc *order.Service) *Service {
	return &Service{
		usrSvc:    usrSvc,
		courseSvc: courseSvc,
		orderSvc:  orderSvc,
		nowFunc:   time.Now,
	}
}

func (svc *Service) Users(ctx context.Context) ([]MonthData, error) {
	users, err := svc.usrSvc.QueryAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading users")
	}
	times := make([]time.Time, 0, len(users))
	for _, u := range users {
		times = append(times, u.CreatedAt)
	}
	return Last12Months(times, svc.nowFunc().UTC()), nil
}

func (svc *Service) Courses(ctx context.Context) ([]MonthData, error) {
	courses, err := svc.courseSvc.QueryAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading courses")
	}
	times := make([]time.Time, 0, len(courses))
	for _, c := range courses {
		times = append(times, c.CreatedAt)
	}
	return Last12Months(times, svc.nowFunc().UTC()), nil
}

func (svc *Service) Orders(ctx context.Context) ([]MonthData, error) {
	invoices, err := svc.orderSvc.Invoices(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "loading orders")
	}
	times := make([]time.Time, 0, len(invoices))
	for _, inv := range invoices {
		times = append(times, inv.CreatedAt)
	}
	return Last12Months(times, svc.nowFunc().UTC()), nil
}
