package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/nidhamu/core/rule"
)

type ruleApi struct {
	svc *rule.Service
}

func registerRuleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *rule.Service) {
	api := ruleApi{svc: svc}
	admin := adminMiddleware()

	rg := g.Group("/rules", jwt)
	rg.POST("", api.create, admin)
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update, admin)
	rg.DELETE("/:id", api.destroy, admin)
}

func (api *ruleApi) create(ctx echo.Context) error {
	var data rule.NewRule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRule")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	rl, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating rule")
	}
	return ctx.JSON(http.StatusCreated, rl)
}

func (api *ruleApi) query(ctx echo.Context) error {
	rules, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying rules")
	}
	if rules == nil {
		rules = []rule.Rule{}
	}
	return ctx.JSON(http.StatusOK, rules)
}

func (api *ruleApi) retrieve(ctx echo.Context) error {
	rl, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding rule by ID")
	}
	return ctx.JSON(http.StatusOK, rl)
}

func (api *ruleApi) update(ctx echo.Context) error {
	var data rule.UpdateRule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRule")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	rl, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating rule")
	}
	return ctx.JSON(http.StatusOK, rl)
}

func (api *ruleApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting rule")
	}
	return ctx.NoContent(http.StatusNoContent)
}
