// Package web provides the embedded single-page frontend.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed static/*
var staticFiles embed.FS

// GetFileSystem returns the embedded filesystem with the static folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "static")
}

// RegisterStaticRoutes serves the frontend for all non-API GET routes.
// The API routes should be registered before calling this function.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}
	index, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		return err
	}

	fileServer := http.FileServer(http.FS(staticFS))
	e.GET("/*", func(c echo.Context) error {
		p := c.Request().URL.Path
		if p == "/" || p == "/index.html" {
			return c.HTMLBlob(http.StatusOK, index)
		}
		if _, err := fs.Stat(staticFS, p[1:]); err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})
	return nil
}
