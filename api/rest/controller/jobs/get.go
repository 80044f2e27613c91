package jobs

import (
	"net/http"
	"strconv"

	"github.com/collate-cloud/collate/api/rest/service/jobs"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	job, err := jobs.Service(c.Request().Context()).Get(c.Param("kind"), uint(id))

	switch {
	case errors.Is(err, jobs.ErrUnknownKind):
		return echo.ErrBadRequest.SetInternal(err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return echo.ErrNotFound
	case err != nil:
		return echo.ErrInternalServerError.SetInternal(err)
	default:
		return c.JSON(http.StatusOK, job)
	}
}
