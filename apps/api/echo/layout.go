package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/layout"
)

type layoutApi struct {
	svc      *layout.Service
	validate *validator.Validate
}

func registerLayoutAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := layoutApi{
		svc:      deps.LayoutSvc,
		validate: deps.Validate,
	}

	lg := g.Group("/layouts")

	// admin endpoints (registered first, see registerCourseAPI)
	ag := lg.Group("", jwt, adminMiddleware())
	ag.POST("", api.create)
	ag.PUT("/:type", api.update)

	// public endpoints
	lg.GET("/:type", api.retrieve)
}

// Handlers

func (api *layoutApi) create(ctx echo.Context) error {
	var data layout.NewLayout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLayout")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating layout")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *layoutApi) retrieve(ctx echo.Context) error {
	l, err := api.svc.Get(ctx.Request().Context(), ctx.Param("type"))
	if err != nil {
		return errors.Wrap(err, "getting layout")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *layoutApi) update(ctx echo.Context) error {
	var data layout.UpdateLayout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLayout")
	}
	data.Type = ctx.Param("type")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating layout")
	}
	return ctx.JSON(http.StatusOK, l)
}
