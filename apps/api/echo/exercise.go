package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/lms"
)

type exerciseApi struct {
	svc      *lms.ExerciseService
	validate *validator.Validate
}

func registerExerciseAPI(g *echo.Group, svc *lms.ExerciseService, validate *validator.Validate) {
	api := exerciseApi{svc: svc, validate: validate}

	// module exercises
	g.GET("/modules/:id/exercises", api.queryByModule)
	g.POST("/modules/:id/exercises", api.create, authRequired)
	g.POST("/modules/:id/exercises/generate", api.generate, authRequired)

	eg := g.Group("/exercises")
	eg.GET("/ai-generated", api.queryAIGenerated, authRequired)
	eg.GET("/stats", api.stats, authRequired)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update, authRequired)
	eg.DELETE("/:id", api.destroy, authRequired)
	eg.POST("/:id/duplicate", api.duplicate, authRequired)
	eg.POST("/:id/submissions", api.submit, authRequired)

	g.PUT("/submissions/:id/grade", api.grade, authRequired)
}

// Handlers

func (api *exerciseApi) queryByModule(ctx echo.Context) error {
	withSubs, err := queryBool(ctx, "include_submissions")
	if err != nil {
		return err
	}
	exercises, err := api.svc.ListByModule(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), withSubs)
	if err != nil {
		return errors.Wrap(err, "listing module exercises")
	}
	return ctx.JSON(http.StatusOK, exercises)
}

func (api *exerciseApi) retrieve(ctx echo.Context) error {
	withSubs, err := queryBool(ctx, "include_submissions")
	if err != nil {
		return err
	}
	exercise, err := api.svc.Get(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), withSubs)
	if err != nil {
		return errors.Wrap(err, "getting exercise")
	}
	return ctx.JSON(http.StatusOK, exercise)
}

func (api *exerciseApi) queryAIGenerated(ctx echo.Context) error {
	var filter lms.AIExerciseFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to AIExerciseFilter")
	}
	exercises, err := api.svc.ListAIGenerated(ctx.Request().Context(), contextUser(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "listing generated exercises")
	}
	return ctx.JSON(http.StatusOK, exercises)
}

func (api *exerciseApi) stats(ctx echo.Context) error {
	var scope lms.StatsScope
	if err := ctx.Bind(&scope); err != nil {
		return errors.Wrap(err, "binding to StatsScope")
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), contextUser(ctx), scope)
	if err != nil {
		return errors.Wrap(err, "computing exercise stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *exerciseApi) create(ctx echo.Context) error {
	var data lms.NewExercise
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExercise")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	exercise, err := api.svc.Create(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating exercise")
	}
	return ctx.JSON(http.StatusCreated, exercise)
}

func (api *exerciseApi) generate(ctx echo.Context) error {
	var data lms.GenerateExercises
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateExercises")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	exercises, err := api.svc.Generate(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "generating exercises")
	}
	return ctx.JSON(http.StatusCreated, exercises)
}

func (api *exerciseApi) update(ctx echo.Context) error {
	var data lms.UpdateExercise
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateExercise")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	exercise, err := api.svc.Update(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating exercise")
	}
	return ctx.JSON(http.StatusOK, exercise)
}

func (api *exerciseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextUser(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting exercise")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *exerciseApi) duplicate(ctx echo.Context) error {
	var data lms.DuplicateExercise
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DuplicateExercise")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	exercise, err := api.svc.Duplicate(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "duplicating exercise")
	}
	return ctx.JSON(http.StatusCreated, exercise)
}

func (api *exerciseApi) submit(ctx echo.Context) error {
	var data lms.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *exerciseApi) grade(ctx echo.Context) error {
	var data lms.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
