// Package server exposes the Wrenchlog HTTP API: authentication, the garage
// flows, and the schedule view. Distances cross this boundary in the rider's
// preferred unit; everything behind it works in miles.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dmelton/wrenchlog/internal/garage"
	"github.com/dmelton/wrenchlog/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB        *gorm.DB
	Garage    *garage.Service
	Notifier  *notify.Notifier
	JWTSecret string
	Port      int
	Log       *logrus.Logger
	Out       io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Wrenchlog API listening at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the Gin router with all routes registered. Split from
// Start so handler tests can drive it with httptest.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("server: db is required")
	}
	if opts.Garage == nil {
		return nil, fmt.Errorf("server: garage service is required")
	}
	if opts.JWTSecret == "" {
		return nil, fmt.Errorf("server: jwt secret is required")
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := &handler{
		db:       opts.DB,
		garage:   opts.Garage,
		notifier: opts.Notifier,
		auth:     newAuthService(opts.JWTSecret),
		log:      opts.Log,
	}
	registerRoutes(router, h)
	return router, nil
}
