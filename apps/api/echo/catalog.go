package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/catalog"
)

type catalogApi struct {
	svc *catalog.Service
}

func registerCatalogAPI(g *echo.Group, deps ServerDeps) {
	api := catalogApi{svc: deps.CatalogSvc}

	cg := g.Group("/catalog")
	cg.GET("", api.retrieve)
	cg.GET("/categories", api.queryCategories)
}

// Handlers

func (api *catalogApi) retrieve(ctx echo.Context) error {
	var filter catalog.FilterState
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to FilterState")
	}

	cat, err := api.svc.Catalog(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "getting catalog")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *catalogApi) queryCategories(ctx echo.Context) error {
	categories, err := api.svc.Categories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting categories")
	}
	return ctx.JSON(http.StatusOK, categories)
}
