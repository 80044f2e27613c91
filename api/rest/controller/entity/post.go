package entity

import (
	"net/http"

	"github.com/collate-cloud/collate/api/rest/service/entity"
	"github.com/collate-cloud/collate/internal/catalog"
	"github.com/collate-cloud/collate/pkg/log"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func Post(c echo.Context) error {
	var req entity.CreateRequest

	if err := c.Bind(&req); err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}
	if len(req.Entities) == 0 {
		return echo.ErrBadRequest.SetInternal(errors.New("'entities' parameter is missing in request"))
	}

	report, err := entity.Service(c.Request().Context()).Create(&req)

	switch {
	case errors.Is(err, catalog.ErrExistingEntity):
		return echo.ErrBadRequest.SetInternal(err)
	case err != nil:
		log.Error("entity creation failed", "error", err)
		return echo.ErrBadRequest.SetInternal(err)
	case !report.Success:
		return c.JSON(http.StatusUnprocessableEntity, report)
	default:
		return c.JSON(http.StatusCreated, report)
	}
}
