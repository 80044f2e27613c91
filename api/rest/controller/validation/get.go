package validation

import (
	"net/http"
	"strconv"

	"github.com/collate-cloud/collate/api/rest/service/validation"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	v, err := validation.Service(c.Request().Context()).Get(uint(id))

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return echo.ErrNotFound
	case err != nil:
		return echo.ErrInternalServerError.SetInternal(err)
	default:
		return c.JSON(http.StatusOK, v)
	}
}
