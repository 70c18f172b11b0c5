package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/analytics"
)

type analyticsApi struct {
	svc *analytics.Service
}

func registerAnalyticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := analyticsApi{svc: deps.AnalyticsSvc}

	ag := g.Group("/analytics", jwt, adminMiddleware())
	ag.GET("/users", api.handle(api.svc.Users, "users"))
	ag.GET("/courses", api.handle(api.svc.Courses, "courses"))
	ag.GET("/orders", api.handle(api.svc.Orders, "orders"))
}

// handle serves the last 12 months data of a resource.
func (api *analyticsApi) handle(last12Months func(context.Context) ([]analytics.MonthData, error), resource string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		data, err := last12Months(ctx.Request().Context())
		if err != nil {
			return errors.Wrapf(err, "getting %s analytics", resource)
		}
		return ctx.JSON(http.StatusOK, echo.Map{"last12Months": data})
	}
}
