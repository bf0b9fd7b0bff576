package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/nidhamu/core/response"
	"github.com/trezcool/nidhamu/core/user"
)

type responseApi struct {
	svc     *response.Service
	userSvc *user.Service
}

func registerResponseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *response.Service, userSvc *user.Service) {
	api := responseApi{svc: svc, userSvc: userSvc}

	rg := g.Group("/responses", jwt)
	rg.POST("", api.create)
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id/decide", api.decide, adminMiddleware())
}

// create files an appeal against a record form on behalf of the caller.
func (api *responseApi) create(ctx echo.Context) error {
	var data response.NewResponse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResponse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rsp, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating response")
	}
	return ctx.JSON(http.StatusCreated, rsp)
}

// query lists all responses for admins, the caller's own otherwise.
func (api *responseApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var responses []response.Response
	if claims.IsAdmin {
		responses, err = api.svc.QueryAll(ctx.Request().Context())
	} else {
		responses, err = api.svc.QueryByUser(ctx.Request().Context(), claims.Subject)
	}
	if err != nil {
		return errors.Wrap(err, "querying responses")
	}
	if responses == nil {
		responses = []response.Response{}
	}
	return ctx.JSON(http.StatusOK, responses)
}

func (api *responseApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rsp, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding response by ID")
	}
	if !claims.IsAdmin && rsp.UserID != claims.Subject {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, rsp)
}

func (api *responseApi) decide(ctx echo.Context) error {
	var data response.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rsp, err := api.svc.Decide(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "deciding response")
	}
	return ctx.JSON(http.StatusOK, rsp)
}
