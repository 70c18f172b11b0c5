package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/order"
	"github.com/trezcool/elimu/core/user"
)

type orderApi struct {
	svc      *order.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerOrderAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := orderApi{
		svc:      deps.OrderSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	og := g.Group("/orders", jwt)
	og.POST("", api.create)
	og.GET("", api.queryInvoices, adminMiddleware())
}

// Handlers

func (api *orderApi) create(ctx echo.Context) error {
	var data order.NewOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrder")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	o, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating order")
	}
	return ctx.JSON(http.StatusCreated, o)
}

func (api *orderApi) queryInvoices(ctx echo.Context) error {
	filter := new(order.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []order.Invoice{})
	}
	filter.Clean()

	invoices, err := api.svc.Invoices(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	if invoices == nil {
		invoices = []order.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}
