package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/lms"
)

type courseApi struct {
	svc      *lms.CourseService
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, svc *lms.CourseService, validate *validator.Validate) {
	api := courseApi{svc: svc, validate: validate}

	cg := g.Group("/courses")

	// catalogue
	cg.GET("", api.query)
	cg.GET("/search", api.search)
	cg.GET("/categories", api.categories)
	cg.GET("/:id", api.retrieve)

	// authoring
	cg.GET("/mine", api.mine, authRequired)
	cg.POST("", api.create, authRequired)
	cg.PUT("/:id", api.update, authRequired)
	cg.PUT("/:id/status", api.setStatus, authRequired)
	cg.DELETE("/:id", api.destroy, authRequired)
	cg.POST("/:id/duplicate", api.duplicate, authRequired)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return err
	}
	courses, err := api.svc.ListPublished(ctx.Request().Context(), ctx.QueryParam("category"), limit)
	if err != nil {
		return errors.Wrap(err, "listing published courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) search(ctx echo.Context) error {
	var q lms.SearchCourses
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to SearchCourses")
	}
	courses, err := api.svc.Search(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "searching courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) categories(ctx echo.Context) error {
	cats, err := api.svc.Categories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing categories")
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	course, err := api.svc.GetWithModules(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *courseApi) mine(ctx echo.Context) error {
	withStats, err := queryBool(ctx, "include_stats")
	if err != nil {
		return err
	}
	courses, err := api.svc.ListByInstructor(
		ctx.Request().Context(), contextUser(ctx), ctx.QueryParam("instructor_id"), withStats,
	)
	if err != nil {
		return errors.Wrap(err, "listing instructor courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data lms.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.Create(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data lms.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.Update(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *courseApi) setStatus(ctx echo.Context) error {
	var data lms.SetCourseStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetCourseStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.SetStatus(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting course status")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextUser(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) duplicate(ctx echo.Context) error {
	var data lms.DuplicateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DuplicateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.Duplicate(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data.Title)
	if err != nil {
		return errors.Wrap(err, "duplicating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}
