package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
)

const errFileRequired = "an .xlsx file is required"

func registerImportAPI(g *echo.Group, authed []echo.MiddlewareFunc, imp *student.Importer) {
	g.POST("/students/import", func(ctx echo.Context) error {
		actor, err := getContextActor(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context actor")
		}

		fh, err := ctx.FormFile("file")
		if err != nil {
			return core.NewFieldError("file", errFileRequired)
		}
		src, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening uploaded file")
		}
		defer src.Close()

		res, err := imp.Import(ctx.Request().Context(), actor, ctx.FormValue(branchParam), src)
		if err != nil {
			return errors.Wrap(err, "importing students")
		}
		return ctx.JSON(http.StatusOK, res)
	}, authed...)
}
