package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/lms"
)

type enrollmentApi struct {
	svc      *lms.EnrollmentService
	validate *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, svc *lms.EnrollmentService, validate *validator.Validate) {
	api := enrollmentApi{svc: svc, validate: validate}

	// course enrollments
	g.POST("/courses/:id/enroll", api.enroll, authRequired)
	g.POST("/courses/:id/drop", api.drop, authRequired)
	g.GET("/courses/:id/enrollment", api.retrieve, authRequired)
	g.GET("/courses/:id/enrollments", api.queryByCourse, authRequired)

	g.PUT("/modules/:id/progress", api.updateProgress, authRequired)

	eg := g.Group("/enrollments")
	eg.GET("/mine", api.mine, authRequired)
	eg.GET("/stats", api.stats, authRequired)
	eg.GET("/:id/progress", api.progress, authRequired)
	eg.PUT("/:id/status", api.setStatus, authRequired)
}

// Handlers

func (api *enrollmentApi) mine(ctx echo.Context) error {
	enrollments, err := api.svc.ListMine(
		ctx.Request().Context(), contextUser(ctx), lms.EnrollmentStatus(ctx.QueryParam("status")),
	)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	enr, err := api.svc.Enroll(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) drop(ctx echo.Context) error {
	var data lms.DropCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DropCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Drop(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data.Reason)
	if err != nil {
		return errors.Wrap(err, "dropping course")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	enr, err := api.svc.Get(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), ctx.QueryParam("student"))
	if err != nil {
		return errors.Wrap(err, "getting enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) queryByCourse(ctx echo.Context) error {
	enrollments, err := api.svc.ListByCourse(
		ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), lms.EnrollmentStatus(ctx.QueryParam("status")),
	)
	if err != nil {
		return errors.Wrap(err, "listing course enrollments")
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *enrollmentApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context(), contextUser(ctx), ctx.QueryParam("course_id"))
	if err != nil {
		return errors.Wrap(err, "computing enrollment stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *enrollmentApi) progress(ctx echo.Context) error {
	prog, err := api.svc.Progress(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting enrollment progress")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *enrollmentApi) updateProgress(ctx echo.Context) error {
	var data lms.UpdateModuleProgress
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModuleProgress")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prog, err := api.svc.UpdateModuleProgress(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating module progress")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *enrollmentApi) setStatus(ctx echo.Context) error {
	var data lms.SetEnrollmentStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetEnrollmentStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.SetStatus(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting enrollment status")
	}
	return ctx.JSON(http.StatusOK, enr)
}
