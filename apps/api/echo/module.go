package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/lms"
)

type moduleApi struct {
	svc      *lms.ModuleService
	validate *validator.Validate
}

func registerModuleAPI(g *echo.Group, svc *lms.ModuleService, validate *validator.Validate) {
	api := moduleApi{svc: svc, validate: validate}

	// course modules
	g.GET("/courses/:id/modules", api.queryByCourse)
	g.POST("/courses/:id/modules", api.create, authRequired)
	g.PUT("/courses/:id/modules/order", api.reorder, authRequired)

	mg := g.Group("/modules")
	mg.GET("/mine", api.mine, authRequired)
	mg.GET("/:id", api.retrieve)
	mg.PUT("/:id", api.update, authRequired)
	mg.DELETE("/:id", api.destroy, authRequired)
	mg.POST("/:id/duplicate", api.duplicate, authRequired)
}

// Handlers

func (api *moduleApi) queryByCourse(ctx echo.Context) error {
	withProgress, err := queryBool(ctx, "include_progress")
	if err != nil {
		return err
	}
	modules, err := api.svc.ListByCourse(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), withProgress)
	if err != nil {
		return errors.Wrap(err, "listing course modules")
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *moduleApi) retrieve(ctx echo.Context) error {
	withProgress, err := queryBool(ctx, "include_progress")
	if err != nil {
		return err
	}
	module, err := api.svc.GetWithExercises(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), withProgress)
	if err != nil {
		return errors.Wrap(err, "getting module")
	}
	return ctx.JSON(http.StatusOK, module)
}

func (api *moduleApi) mine(ctx echo.Context) error {
	withStats, err := queryBool(ctx, "include_stats")
	if err != nil {
		return err
	}
	modules, err := api.svc.ListByInstructor(ctx.Request().Context(), contextUser(ctx), withStats)
	if err != nil {
		return errors.Wrap(err, "listing instructor modules")
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *moduleApi) create(ctx echo.Context) error {
	var data lms.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	module, err := api.svc.Create(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, module)
}

func (api *moduleApi) update(ctx echo.Context) error {
	var data lms.UpdateModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	module, err := api.svc.Update(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, module)
}

func (api *moduleApi) reorder(ctx echo.Context) error {
	var data lms.ReorderModules
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReorderModules")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	modules, err := api.svc.Reorder(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data.ModuleIDs)
	if err != nil {
		return errors.Wrap(err, "reordering modules")
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *moduleApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextUser(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *moduleApi) duplicate(ctx echo.Context) error {
	var data lms.DuplicateModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DuplicateModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	module, err := api.svc.Duplicate(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "duplicating module")
	}
	return ctx.JSON(http.StatusCreated, module)
}
