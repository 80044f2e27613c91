package validation

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/collate-cloud/collate/api/rest/service/validation"
	"github.com/labstack/echo/v4"
)

func List(c echo.Context) error {
	req := &validation.ListRequest{
		Name: c.QueryParam("name"),
	}

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return echo.ErrBadRequest.SetInternal(err)
		}
		req.Limit = limit
	}

	if raw := c.QueryParam("offset"); raw != "" {
		offset, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return echo.ErrBadRequest.SetInternal(err)
		}
		req.Offset = offset
	}

	if raw := c.QueryParam("order_by"); raw != "" {
		req.OrderBy = strings.Split(raw, ",")
	}

	validations, err := validation.Service(c.Request().Context()).List(req)
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, validations)
}
