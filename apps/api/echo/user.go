package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/user"
)

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, svc *user.Service, validate *validator.Validate) {
	api := userApi{svc: svc, validate: validate}

	ug := g.Group("/users")

	ug.GET("/by-subject/:subject", api.retrieveBySubject)

	// the caller
	ug.GET("/me", api.me, identityRequired)
	ug.POST("/me", api.upsert, identityRequired)
	ug.PUT("/me/preferences", api.updatePreferences, authRequired)
	ug.PUT("/me/learning-profile", api.updateLearningProfile, authRequired)
	ug.GET("/me/has-role/:role", api.hasRole, authRequired)

	// admin endpoints
	ug.GET("", api.query, authRequired)
	ug.GET("/stats", api.stats, authRequired)
	ug.PUT("/:id/role", api.updateRole, authRequired)
	ug.POST("/:id/toggle-status", api.toggleStatus, authRequired)
	ug.DELETE("/:id", api.destroy, authRequired)
}

// Handlers

func (api *userApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.Current(ctx.Request().Context(), claims.Identity())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) upsert(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data user.UpsertUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpsertUser")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Upsert(ctx.Request().Context(), claims.Identity(), data)
	if err != nil {
		return errors.Wrap(err, "upserting user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updatePreferences(ctx echo.Context) error {
	var data user.UpdatePreferences
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePreferences")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.UpdatePreferences(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating preferences")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateLearningProfile(ctx echo.Context) error {
	var data user.UpdateLearningProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLearningProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.UpdateLearningProfile(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating learning profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) hasRole(ctx echo.Context) error {
	role := user.Role(ctx.Param("role"))
	return ctx.JSON(http.StatusOK, echo.Map{"has_role": api.svc.HasRole(contextUser(ctx), role)})
}

func (api *userApi) retrieveBySubject(ctx echo.Context) error {
	usr, err := api.svc.GetBySubject(ctx.Request().Context(), ctx.Param("subject"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return err
	}
	users, err := api.svc.ListByRole(ctx.Request().Context(), contextUser(ctx), user.Role(ctx.QueryParam("role")), limit)
	if err != nil {
		return errors.Wrap(err, "listing users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "computing user stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *userApi) updateRole(ctx echo.Context) error {
	var data user.UpdateRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.UpdateRole(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data.Role)
	if err != nil {
		return errors.Wrap(err, "updating role")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) toggleStatus(ctx echo.Context) error {
	usr, err := api.svc.ToggleStatus(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling status")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextUser(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
