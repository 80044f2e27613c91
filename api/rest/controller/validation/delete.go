package validation

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/collate-cloud/collate/api/rest/service/validation"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Delete soft-deletes a validation; `?hard=true` removes it with its
// results and orphaned runs.
func Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	req := &validation.DeleteRequest{
		ID:   uint(id),
		Hard: strings.EqualFold(c.QueryParam("hard"), "true"),
	}

	err = validation.Service(c.Request().Context()).Delete(req)

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return echo.ErrNotFound
	case err != nil:
		return echo.ErrInternalServerError.SetInternal(err)
	default:
		return c.NoContent(http.StatusAccepted)
	}
}
