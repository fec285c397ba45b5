package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/search"
	"github.com/cromulus/reminders-cli-sub001/store"
	"github.com/cromulus/reminders-cli-sub001/task"
)

// priorityInput accepts a bucket name or a raw 0-9 number.
type priorityInput struct {
	raw int
}

func (p *priorityInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	raw, ok := task.ParsePriority(s)
	if !ok {
		return fmt.Errorf("invalid priority %s: want none, low, medium, high or 0-9", data)
	}
	p.raw = raw
	return nil
}

type createReminderRequest struct {
	Title    string         `json:"title"`
	Notes    string         `json:"notes"`
	DueDate  string         `json:"dueDate"`
	Priority *priorityInput `json:"priority"`
}

// updateReminderRequest fields are optional. An empty dueDate clears it.
type updateReminderRequest struct {
	Title    *string        `json:"title"`
	Notes    *string        `json:"notes"`
	DueDate  *string        `json:"dueDate"`
	Priority *priorityInput `json:"priority"`
}

type createListRequest struct {
	Title string `json:"title"`
}

func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return badInput(fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

func (s *Server) resolveDue(value string) (time.Time, error) {
	due, ok := s.deps.Env().ResolveDate(value)
	if !ok {
		return time.Time{}, badInput(fmt.Errorf("unrecognized due date %q", value))
	}
	return due, nil
}

func (s *Server) handleGetLists(c *gin.Context) {
	lists, err := s.deps.Store.Lists(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (s *Server) handleCreateList(c *gin.Context) {
	var req createListRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(c, badInput(errors.New("title is required")))
		return
	}
	list, err := s.deps.Store.CreateList(c.Request.Context(), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (s *Server) handleGetList(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := s.deps.Store.FindList(ctx, c.Param("list"))
	if err != nil {
		writeError(c, err)
		return
	}
	includeCompleted := false
	if v := c.Query("completed"); v != "" {
		includeCompleted, err = strconv.ParseBool(v)
		if err != nil {
			writeError(c, badInput(fmt.Errorf("invalid completed value %q", v)))
			return
		}
	}
	tasks, err := store.TasksInList(ctx, s.deps.Store, list.ID, includeCompleted)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminderBodies(tasks))
}

func (s *Server) handleCreateReminder(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := s.deps.Store.FindList(ctx, c.Param("list"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req createReminderRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(c, badInput(errors.New("title is required")))
		return
	}

	t := &task.Task{Title: req.Title, Notes: req.Notes, ListID: list.ID}
	if strings.TrimSpace(req.DueDate) != "" {
		due, err := s.resolveDue(req.DueDate)
		if err != nil {
			writeError(c, err)
			return
		}
		t.DueDate = &due
	}
	if req.Priority != nil {
		t.Priority = req.Priority.raw
	}

	created, err := s.deps.Store.CreateTask(ctx, t)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reminderBody(created))
}

// reminderInList loads the reminder named in the path and checks that it
// belongs to the list named in the path.
func (s *Server) reminderInList(c *gin.Context) (*task.Task, error) {
	ctx := c.Request.Context()
	list, err := s.deps.Store.FindList(ctx, c.Param("list"))
	if err != nil {
		return nil, err
	}
	t, err := s.deps.Store.GetTask(ctx, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if t.ListID != list.ID {
		return nil, fmt.Errorf("reminder %s is not in list %s: %w", c.Param("id"), list.Title, store.ErrNotFound)
	}
	return t, nil
}

func (s *Server) handleUpdateReminder(c *gin.Context) {
	t, err := s.reminderInList(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req updateReminderRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	patch := task.Patch{Title: req.Title, Notes: req.Notes}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(c, badInput(errors.New("title must not be empty")))
		return
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			patch.ClearDueDate = true
		} else {
			due, err := s.resolveDue(*req.DueDate)
			if err != nil {
				writeError(c, err)
				return
			}
			patch.DueDate = &due
		}
	}
	if req.Priority != nil {
		patch.Priority = &req.Priority.raw
	}

	updated, err := s.deps.Store.UpdateTask(c.Request.Context(), t.ID, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminderBody(updated))
}

func (s *Server) handleDeleteReminder(c *gin.Context) {
	t, err := s.reminderInList(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.deps.Store.DeleteTask(c.Request.Context(), t.ID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetCompleted(completed bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := s.reminderInList(c)
		if err != nil {
			writeError(c, err)
			return
		}
		updated, err := s.deps.Store.SetCompleted(c.Request.Context(), t.ID, completed)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, reminderBody(updated))
	}
}

func (s *Server) handleSearch(c *gin.Context) {
	opts := search.Options{
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(c, badInput(fmt.Errorf("invalid limit %q", v)))
			return
		}
		opts.Limit = limit
	}
	if err := opts.Validate(); err != nil {
		writeError(c, badInput(err))
		return
	}

	f, err := filter.ParseFilterWith(c.Query("filter"), s.deps.Shortcuts)
	if err != nil {
		writeError(c, err)
		return
	}

	tasks, err := s.deps.Store.FetchAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	results, err := search.Run(tasks, f, opts, s.deps.Env())
	if err != nil {
		writeError(c, badInput(err))
		return
	}
	c.JSON(http.StatusOK, reminderBodies(results))
}

// reminderJSON is a reminder as the API returns it: the webhook
// reminder object plus "id", which list clients key on.
type reminderJSON struct {
	ID string `json:"id"`
	*task.Task
}

func reminderBody(t *task.Task) reminderJSON {
	return reminderJSON{ID: t.ID, Task: t}
}

func reminderBodies(tasks []*task.Task) []reminderJSON {
	out := make([]reminderJSON, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, reminderBody(t))
	}
	return out
}
