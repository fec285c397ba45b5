package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cromulus/reminders-cli-sub001/task"
	"github.com/cromulus/reminders-cli-sub001/webhook"
)

// createWebhookRequest.Filter may be an expression string, a
// {"expression", "ast"} object or the legacy list/completion object.
type createWebhookRequest struct {
	URL    string          `json:"url"`
	Name   string          `json:"name"`
	Filter json.RawMessage `json:"filter"`
}

type updateWebhookRequest struct {
	URL      *string         `json:"url"`
	Name     *string         `json:"name"`
	IsActive *bool           `json:"isActive"`
	Filter   json.RawMessage `json:"filter"` // null resets to match-all
}

type testWebhookRequest struct {
	Reminder *task.Task `json:"reminder"`
}

func (s *Server) handleListWebhooks(c *gin.Context) {
	subs := s.deps.Registry.List()
	if subs == nil {
		subs = []webhook.Subscription{}
	}
	c.JSON(http.StatusOK, subs)
}

func (s *Server) handleCreateWebhook(c *gin.Context) {
	var req createWebhookRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	f, err := webhook.DecodeFilter(req.Filter, s.deps.Shortcuts)
	if err != nil {
		writeError(c, badInput(fmt.Errorf("invalid filter: %w", err)))
		return
	}
	sub, err := s.deps.Registry.Add(req.URL, f, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (s *Server) handleGetWebhook(c *gin.Context) {
	sub, ok := s.deps.Registry.Get(c.Param("id"))
	if !ok {
		writeStatusError(c, http.StatusNotFound, "webhook not found")
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) handleUpdateWebhook(c *gin.Context) {
	var req updateWebhookRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	u := webhook.Update{URL: req.URL, Name: req.Name, Active: req.IsActive}
	if len(req.Filter) > 0 {
		f, err := webhook.DecodeFilter(req.Filter, s.deps.Shortcuts)
		if err != nil {
			writeError(c, badInput(fmt.Errorf("invalid filter: %w", err)))
			return
		}
		u.Filter = f
	}

	id := c.Param("id")
	ok, err := s.deps.Registry.Update(id, u)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		writeStatusError(c, http.StatusNotFound, "webhook not found")
		return
	}
	sub, _ := s.deps.Registry.Get(id)
	c.JSON(http.StatusOK, sub)
}

func (s *Server) handleDeleteWebhook(c *gin.Context) {
	ok, err := s.deps.Registry.Remove(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		writeStatusError(c, http.StatusNotFound, "webhook not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// handleTestWebhook sends a test delivery and reports its outcome. The body
// may carry a reminder to send, or name one by id with ?reminder=.
func (s *Server) handleTestWebhook(c *gin.Context) {
	sub, ok := s.deps.Registry.Get(c.Param("id"))
	if !ok {
		writeStatusError(c, http.StatusNotFound, "webhook not found")
		return
	}
	if s.deps.Tester == nil {
		writeStatusError(c, http.StatusServiceUnavailable, "webhook delivery is not available")
		return
	}

	var sample *task.Task
	if id := c.Query("reminder"); id != "" {
		t, err := s.deps.Store.GetTask(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		sample = t
	} else if c.Request.ContentLength > 0 {
		var req testWebhookRequest
		if err := bindJSON(c, &req); err != nil {
			writeError(c, err)
			return
		}
		sample = req.Reminder
	}

	if err := s.deps.Tester.SendTest(c.Request.Context(), sub, sample); err != nil {
		var delivery *webhook.DeliveryError
		if errors.As(err, &delivery) {
			c.JSON(http.StatusBadGateway, gin.H{
				"delivered":  false,
				"statusCode": delivery.StatusCode,
				"error":      err.Error(),
			})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": true})
}
