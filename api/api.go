package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	rest "github.com/collate-cloud/collate/api/rest/v1"
	"github.com/collate-cloud/collate/pkg/env"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var e *echo.Echo

// Start launches collate's API.
func Start() error {
	e = echo.New()
	e.HideBanner = true
	e.HidePort = true

	// health
	e.GET("/health", Health)

	// metrics
	prometheus.NewPrometheus("collate", nil).Use(e)

	// REST
	group := e.Group("/v1")
	if user := env.Variables().BasicAuthUser; user != "" {
		pass := env.Variables().BasicAuthPass
		group.Use(middleware.BasicAuth(func(u, p string, c echo.Context) (bool, error) {
			return u == user && p == pass, nil
		}))
	}
	rest.Bind(group)

	if err := e.Start(fmt.Sprintf(":%v", env.Variables().Port)); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown drains in-flight requests and stops the API.
func Shutdown() error {
	if e == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return e.Shutdown(ctx)
}
