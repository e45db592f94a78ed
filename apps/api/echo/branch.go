package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/branch"
)

type branchApi struct {
	svc *branch.Service
}

func registerBranchAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *branch.Service) {
	api := branchApi{svc: svc}

	bg := g.Group("/branches", authed...)
	bg.GET("", api.query)
	bg.POST("", api.create)
	bg.GET("/:id", api.retrieve)
	bg.PUT("/:id", api.update)
	bg.DELETE("/:id", api.destroy)
}

func (api *branchApi) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	branches, err := api.svc.Query(ctx.Request().Context(), actor, bindParams(ctx, branch.Collection))
	if err != nil {
		return errors.Wrap(err, "querying branches")
	}
	return ctx.JSON(http.StatusOK, branches)
}

func (api *branchApi) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	b, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting branch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *branchApi) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	b := branch.New()
	if err := decodeBody(ctx, b); err != nil {
		return err
	}
	b, err = api.svc.Create(ctx.Request().Context(), actor, b)
	if err != nil {
		return errors.Wrap(err, "creating branch")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *branchApi) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	b, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), func(b *branch.Branch) error {
		return decodeBody(ctx, b)
	})
	if err != nil {
		return errors.Wrap(err, "updating branch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *branchApi) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting branch")
	}
	return ctx.NoContent(http.StatusNoContent)
}
