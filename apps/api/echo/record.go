package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/nidhamu/core/record"
	"github.com/trezcool/nidhamu/core/school"
	"github.com/trezcool/nidhamu/core/user"
)

type recordApi struct {
	svc       *record.Service
	schoolSvc *school.Service
	userSvc   *user.Service
}

func registerRecordAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *record.Service, schoolSvc *school.Service, userSvc *user.Service) {
	api := recordApi{svc: svc, schoolSvc: schoolSvc, userSvc: userSvc}

	rg := g.Group("/records", jwt)
	rg.POST("", api.create, adminOrMonitorMiddleware())
	rg.GET("", api.query)
	rg.GET("/weekly-report", api.weeklyReport, adminMiddleware())
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update, adminOrMonitorMiddleware())
	rg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *recordApi) create(ctx echo.Context) error {
	var data record.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// monitors may only log records against a class they follow
	if !ctxUsr.IsAdmin() {
		clsID := data.ClassID
		if clsID == "" {
			st, err := api.schoolSvc.GetStudentByID(ctx.Request().Context(), data.StudentID)
			if err != nil {
				return errors.Wrap(err, "finding student by ID")
			}
			clsID = st.ClassID
		}
		if !ctxUsr.Follows(clsID) {
			return errHttpForbidden
		}
	}

	rec, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating record form")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *recordApi) query(ctx echo.Context) error {
	var filter RecordFilter
	if err := filter.Bind(ctx); err != nil {
		return err
	}

	recs, err := api.svc.Filter(ctx.Request().Context(), filter.Filter)
	if err != nil {
		return errors.Wrap(err, "querying record forms")
	}
	if recs == nil {
		recs = []record.RecordForm{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *recordApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding record form by ID")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) update(ctx echo.Context) error {
	var data record.UpdateRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() && !ctxUsr.Follows(data.ClassID) {
		return errHttpForbidden
	}

	rec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating record form")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting record form")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// weeklyReport sums the signed point contributions per class per ISO week
// over the requested [from, to] range.
func (api *recordApi) weeklyReport(ctx echo.Context) error {
	var filter RecordFilter
	if err := filter.Bind(ctx); err != nil {
		return err
	}

	report, err := api.svc.WeeklyReport(ctx.Request().Context(), filter.Filter.From, filter.Filter.To)
	if err != nil {
		return errors.Wrap(err, "building weekly report")
	}
	return ctx.JSON(http.StatusOK, report)
}
