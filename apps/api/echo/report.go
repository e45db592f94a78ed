package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/report"
)

func registerReportAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *report.Service) {
	g.GET("/stats", func(ctx echo.Context) error {
		actor, err := getContextActor(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context actor")
		}
		stats, err := svc.Stats(ctx.Request().Context(), actor, ctx.QueryParam(branchParam))
		if err != nil {
			return errors.Wrap(err, "computing stats")
		}
		return ctx.JSON(http.StatusOK, stats)
	}, authed...)
}
