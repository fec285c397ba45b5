// Package server exposes reminders, search and webhook subscriptions over
// HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/store"
	"github.com/cromulus/reminders-cli-sub001/task"
	"github.com/cromulus/reminders-cli-sub001/webhook"
)

const shutdownTimeout = 5 * time.Second

// Tester sends a one-off delivery to a subscription.
type Tester interface {
	SendTest(ctx context.Context, sub webhook.Subscription, t *task.Task) error
}

// Deps are the components the handlers operate on.
type Deps struct {
	Store     store.Store
	Registry  *webhook.Registry
	Tester    Tester
	Shortcuts *filter.Shortcuts
	Env       func() filter.Env
}

// Server is the reminders HTTP API.
type Server struct {
	deps   Deps
	router *gin.Engine
}

// New builds the router. A non-empty token requires every request to carry
// "Authorization: Bearer <token>".
func New(deps Deps, token string) *Server {
	if deps.Shortcuts == nil {
		deps.Shortcuts = filter.DefaultShortcuts
	}
	if deps.Env == nil {
		deps.Env = filter.NewEnv
	}

	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())
	if token != "" {
		router.Use(bearerAuth(token))
	}

	s := &Server{deps: deps, router: router}

	router.GET("/lists", s.handleGetLists)
	router.POST("/lists", s.handleCreateList)
	router.GET("/lists/:list", s.handleGetList)

	reminders := router.Group("/lists/:list/reminders")
	{
		reminders.POST("", s.handleCreateReminder)
		reminders.PATCH("/:id", s.handleUpdateReminder)
		reminders.DELETE("/:id", s.handleDeleteReminder)
		reminders.PATCH("/:id/complete", s.handleSetCompleted(true))
		reminders.PATCH("/:id/uncomplete", s.handleSetCompleted(false))
	}

	router.GET("/search", s.handleSearch)

	webhooks := router.Group("/webhooks")
	{
		webhooks.GET("", s.handleListWebhooks)
		webhooks.POST("", s.handleCreateWebhook)
		webhooks.GET("/:id", s.handleGetWebhook)
		webhooks.PATCH("/:id", s.handleUpdateWebhook)
		webhooks.DELETE("/:id", s.handleDeleteWebhook)
		webhooks.POST("/:id/test", s.handleTestWebhook)
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
