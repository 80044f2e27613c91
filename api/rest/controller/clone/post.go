package clone

import (
	"net/http"

	"github.com/collate-cloud/collate/api/rest/service/clone"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/pkg/log"
	"github.com/labstack/echo/v4"
)

func Post(c echo.Context) error {
	var req clone.CreateRequest

	if err := c.Bind(&req); err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	report, err := clone.Service(c.Request().Context()).Create(&req)
	if err != nil {
		log.Error("clone request failed", "error", err)
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(statusOf(report), report)
}

func statusOf(report outcome.Report) int {
	if report.Success {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}
