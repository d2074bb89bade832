package handler // handler defines http handlers

import (
	"errors"  // errors provides sentinel values used in getUserID
	"net/http" // HTTP status codes
	"strconv" // strconv converts strings to numeric types

	"github.com/iliyamo/study-cafe-reservation/internal/service" // service error taxonomy
	"github.com/labstack/echo/v4"                                // echo defines request context types
)

// getUserID extracts the user_id placed in the context by the JWT
// middleware and converts it to uint64.  JSON numbers arrive as
// float64, so several representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// respondError translates a workflow error into the structured
// {code, message} payload at its mapped HTTP status.  Anything that is
// not a ServiceError is reported generically so internal detail never
// leaks to clients.
func respondError(c echo.Context, err error) error {
	var se *service.ServiceError
	if errors.As(err, &se) {
		return c.JSON(se.Status, echo.Map{"code": se.Code, "message": se.Message})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"code":    service.ErrInternal.Code,
		"message": service.ErrInternal.Message,
	})
}
