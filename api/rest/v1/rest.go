package rest

import (
	"github.com/collate-cloud/collate/api/rest/controller/clone"
	"github.com/collate-cloud/collate/api/rest/controller/entity"
	"github.com/collate-cloud/collate/api/rest/controller/imports"
	"github.com/collate-cloud/collate/api/rest/controller/jobs"
	"github.com/collate-cloud/collate/api/rest/controller/merge"
	"github.com/collate-cloud/collate/api/rest/controller/validation"
	"github.com/labstack/echo/v4"
)

// Bind the REST endpoints to the versioned endpoint group.
func Bind(group *echo.Group) {
	// imports
	group.POST("/import", imports.Post)

	// merge and clone
	group.POST("/merge", merge.Post)
	group.POST("/clone", clone.Post)

	// reference entities
	group.POST("/entities", entity.Post)

	// background jobs
	group.GET("/jobs/:kind/:id", jobs.Get)

	// validations
	group.GET("/validations", validation.List)
	group.GET("/validations/:id", validation.Get)
	group.DELETE("/validations/:id", validation.Delete)
}
