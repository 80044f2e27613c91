package imports

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/collate-cloud/collate/api/rest/service/imports"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/pkg/log"
	"github.com/labstack/echo/v4"
)

// maxSheetBytes caps uploads and remote fetches.
const maxSheetBytes = 64 << 20

func Post(c echo.Context) error {
	req := &imports.CreateRequest{
		ValidationName: c.FormValue("validation_name"),
		Notes:          c.FormValue("notes"),
		Date:           c.FormValue("validation_date"),
		SourceFile:     c.FormValue("source_file"),
		RequesterID:    formUint(c, "requester_id"),
		ForceRun:       formBool(c, "force_run"),
		ForceItem:      formBool(c, "force_item"),
		ImportReason:   c.FormValue("import_reason"),
		SiteURL:        siteURL(c),
	}

	if raw := strings.TrimSpace(c.FormValue("validation_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			out := outcome.New()
			out.AddInvalidValidationError(fmt.Sprintf("Invalid validation id '%s'.", raw))
			return c.JSON(http.StatusUnprocessableEntity, out.Build())
		}
		vid := uint(id)
		req.ValidationID = &vid
	}

	name, data, err := sheetContent(c)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}
	req.FileName = name
	req.Content = data
	if req.SourceFile == "" {
		req.SourceFile = name
	}

	report, err := imports.Service(c.Request().Context()).Create(req)
	if err != nil {
		log.Error("import request failed", "error", err)
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(statusOf(report), report)
}

// sheetContent reads the uploaded file, or fetches the sheet from
// the given url forwarding the caller's basic auth credentials.
func sheetContent(c echo.Context) (string, []byte, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return "", nil, err
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, maxSheetBytes))
		return fh.Filename, data, err
	}

	if raw := strings.TrimSpace(c.FormValue("url")); raw != "" {
		return fetchSheet(c, raw)
	}

	return "", nil, fmt.Errorf("'file' parameter is missing in form data")
}

func fetchSheet(c echo.Context, rawurl string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, rawurl, nil)
	if err != nil {
		return "", nil, err
	}
	if user, pass, ok := c.Request().BasicAuth(); ok {
		req.SetBasicAuth(user, pass)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetching sheet from %s: %s", rawurl, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetBytes))
	return path.Base(req.URL.Path), data, err
}

func formUint(c echo.Context, name string) uint {
	value, _ := strconv.ParseUint(c.FormValue(name), 10, 32)
	return uint(value)
}

func formBool(c echo.Context, name string) bool {
	switch strings.ToLower(c.FormValue(name)) {
	case "true", "on", "1":
		return true
	default:
		return false
	}
}

func siteURL(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host + "/"
}

func statusOf(report outcome.Report) int {
	if report.Success {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}
