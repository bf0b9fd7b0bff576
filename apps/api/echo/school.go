package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/nidhamu/core"
	"github.com/trezcool/nidhamu/core/school"
)

type schoolApi struct {
	svc *school.Service
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *school.Service) {
	api := schoolApi{svc: svc}
	admin := adminMiddleware()

	cg := g.Group("/classes", jwt)
	cg.POST("", api.createClass, admin)
	cg.POST("/bulk", api.createClasses, admin)
	cg.GET("", api.queryClasses)
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass, admin)
	cg.DELETE("/:id", api.destroyClass, admin)

	tg := g.Group("/teachers", jwt)
	tg.POST("", api.createTeacher, admin)
	tg.GET("", api.queryTeachers)
	tg.GET("/:id", api.retrieveTeacher)
	tg.PUT("/:id", api.updateTeacher, admin)
	tg.DELETE("/:id", api.destroyTeacher, admin)

	sg := g.Group("/students", jwt)
	sg.POST("", api.createStudent, admin)
	sg.POST("/bulk", api.createStudents, admin)
	sg.GET("", api.queryStudents)
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent, admin)
	sg.DELETE("/:id", api.destroyStudent, admin)
}

// Classes

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	cls, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *schoolApi) createClasses(ctx echo.Context) error {
	var data BulkClassesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkClassesRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	classes, err := api.svc.CreateClasses(ctx.Request().Context(), data.Classes)
	if err != nil {
		return errors.Wrap(err, "creating classes")
	}
	return ctx.JSON(http.StatusCreated, classes)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.QueryAllClasses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	cls, err := api.svc.GetClassByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) updateClass(ctx echo.Context) error {
	var data school.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	cls, err := api.svc.UpdateClass(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) destroyClass(ctx echo.Context) error {
	if err := api.svc.DeleteClass(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Teachers

func (api *schoolApi) createTeacher(ctx echo.Context) error {
	var data school.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	tch, err := api.svc.CreateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, tch)
}

func (api *schoolApi) queryTeachers(ctx echo.Context) error {
	teachers, err := api.svc.QueryAllTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []school.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *schoolApi) retrieveTeacher(ctx echo.Context) error {
	tch, err := api.svc.GetTeacherByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher by ID")
	}
	return ctx.JSON(http.StatusOK, tch)
}

func (api *schoolApi) updateTeacher(ctx echo.Context) error {
	var data school.UpdateTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	tch, err := api.svc.UpdateTeacher(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, tch)
}

func (api *schoolApi) destroyTeacher(ctx echo.Context) error {
	if err := api.svc.DeleteTeacher(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

func (api *schoolApi) createStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	st, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *schoolApi) createStudents(ctx echo.Context) error {
	var data BulkStudentsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkStudentsRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	students, err := api.svc.CreateStudents(ctx.Request().Context(), data.Students)
	if err != nil {
		return errors.Wrap(err, "creating students")
	}
	return ctx.JSON(http.StatusCreated, students)
}

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	students, err := api.svc.QueryAllStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	st, err := api.svc.GetStudentByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *schoolApi) updateStudent(ctx echo.Context) error {
	var data school.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	st, err := api.svc.UpdateStudent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *schoolApi) destroyStudent(ctx echo.Context) error {
	if err := api.svc.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	BulkClassesRequest struct {
		Classes []school.NewClass `json:"classes" validate:"required,min=1"`
	}

	BulkStudentsRequest struct {
		Students []school.NewStudent `json:"students" validate:"required,min=1"`
	}
)

func (br *BulkClassesRequest) Validate() error {
	if err := core.Validate.Struct(br); err != nil {
		return err
	}
	for i := range br.Classes {
		if err := br.Classes[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (br *BulkStudentsRequest) Validate() error {
	if err := core.Validate.Struct(br); err != nil {
		return err
	}
	for i := range br.Students {
		if err := br.Students[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
