package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/elimu/core"
)

// queryInt reads an optional integer query parameter; 0 when absent.
func queryInt(ctx echo.Context, name string) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be an integer"})
	}
	return i, nil
}

// queryBool reads an optional boolean query parameter; false when absent.
func queryBool(ctx echo.Context, name string) (bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a boolean"})
	}
	return b, nil
}
