package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/inventory"
)

type (
	// Resource is a collection exposed under /v1/<collection-name>.
	Resource interface {
		Path() string
		register(g *echo.Group, authed []echo.MiddlewareFunc)
	}

	// ParamsHook adds collection specific list parameters.
	ParamsHook func(ctx echo.Context, p *document.Params)

	resource[T document.Document] struct {
		path  string
		svc   *document.Service[T]
		hooks []ParamsHook
	}
)

func NewResource[T document.Document](svc *document.Service[T], hooks ...ParamsHook) Resource {
	return &resource[T]{
		path:  "/" + strings.ReplaceAll(svc.Collection().Name, "_", "-"),
		svc:   svc,
		hooks: hooks,
	}
}

// LowStockParam narrows inventory lists to items at or below their minimum with ?low_stock=true.
func LowStockParam(ctx echo.Context, p *document.Params) {
	if low, _ := strconv.ParseBool(ctx.QueryParam("low_stock")); low {
		p.Compare = append(p.Compare, inventory.LowStock)
	}
}

func (res *resource[T]) Path() string { return res.path }

func (res *resource[T]) register(g *echo.Group, authed []echo.MiddlewareFunc) {
	rg := g.Group(res.path, authed...)
	rg.GET("", res.query)
	rg.POST("", res.create)
	rg.DELETE("", res.destroyMultiple)
	rg.GET("/:id", res.retrieve)
	rg.PUT("/:id", res.update)
	rg.DELETE("/:id", res.destroy)
}

func (res *resource[T]) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	p := bindParams(ctx, res.svc.Collection())
	for _, hook := range res.hooks {
		hook(ctx, &p)
	}
	docs, err := res.svc.Query(ctx.Request().Context(), actor, p)
	if err != nil {
		return errors.Wrapf(err, "querying %s", res.svc.Collection().Name)
	}
	return ctx.JSON(http.StatusOK, docs)
}

func (res *resource[T]) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	doc, err := res.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrapf(err, "getting %s", res.svc.Collection().Name)
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (res *resource[T]) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	doc := res.svc.New()
	if err := decodeBody(ctx, doc); err != nil {
		return err
	}
	doc, err = res.svc.Create(ctx.Request().Context(), actor, doc)
	if err != nil {
		return errors.Wrapf(err, "creating %s", res.svc.Collection().Name)
	}
	return ctx.JSON(http.StatusCreated, doc)
}

// update merges the request body onto the stored document.
func (res *resource[T]) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	doc, err := res.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), func(doc T) error {
		return decodeBody(ctx, doc)
	})
	if err != nil {
		return errors.Wrapf(err, "updating %s", res.svc.Collection().Name)
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (res *resource[T]) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	if err := res.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrapf(err, "deleting %s", res.svc.Collection().Name)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (res *resource[T]) destroyMultiple(ctx echo.Context) error {
	ids := queryIDs(ctx)
	if len(ids) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	if err := res.svc.Delete(ctx.Request().Context(), actor, ids...); err != nil {
		return errors.Wrapf(err, "deleting %s", res.svc.Collection().Name)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// decodeBody decodes the JSON body onto v. Path and query parameters are never bound to documents.
func decodeBody(ctx echo.Context, v interface{}) error {
	if err := json.NewDecoder(ctx.Request().Body).Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}
