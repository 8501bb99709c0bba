package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/icdts/todo/internal/db"
	"github.com/icdts/todo/internal/middleware"
	"github.com/icdts/todo/internal/models"
	"github.com/sirupsen/logrus"
)

// HandleFuncWithSession is a handler that runs inside one unit of work.
type HandleFuncWithSession func(*db.Session, http.ResponseWriter, *http.Request)

type TodoHandler struct {
	store  *db.Store
	logger *logrus.Logger
}

func NewTodoHandler(store *db.Store, logger *logrus.Logger) *TodoHandler {
	return &TodoHandler{
		store:  store,
		logger: logger,
	}
}

type createTodoRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

type updateTodoRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

const todoNotFound = "Todo not found"

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, detailResponse{Detail: detail})
}

func (h *TodoHandler) entry(r *http.Request, handler string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"component":  "http_handler",
		"handler":    handler,
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

// withSession acquires a session for the request and releases it on every
// exit path, including panics.
func (h *TodoHandler) withSession(fn HandleFuncWithSession) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := h.store.Session()
		defer func() {
			if err := sess.Close(); err != nil {
				h.entry(r, "session").WithError(err).Warn("failed to release session")
			}
		}()
		fn(sess, w, r)
	}
}

// todoID parses the {id} path variable, writing a 422 when it is not an integer.
func todoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "id must be an integer")
		return 0, false
	}
	return id, true
}

// storeError maps a session error onto the response. NotFound is the only
// modeled failure; everything else is a 500.
func storeError(w http.ResponseWriter, log *logrus.Entry, err error, msg string) {
	if errors.Is(err, db.ErrNotFound) {
		log.Warn("todo not found")
		writeDetail(w, http.StatusNotFound, todoNotFound)
		return
	}
	log.WithError(err).Error(msg)
	writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
}

// Root handles GET /
func (h *TodoHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Hello World"})
}

// CreateTodo handles POST /todos/
func (h *TodoHandler) CreateTodo(sess *db.Session, w http.ResponseWriter, r *http.Request) {
	logEntry := h.entry(r, "CreateTodo")

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Title == nil {
		logEntry.Warn("title is required")
		writeDetail(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	completed := req.Completed != nil && *req.Completed

	todo, err := sess.Create(r.Context(), *req.Title, completed)
	if err != nil {
		storeError(w, logEntry, err, "failed to create todo")
		return
	}

	logEntry.WithField("todo_id", todo.ID).Info("todo created")
	writeJSON(w, http.StatusOK, todo)
}

// GetTodo handles GET /todos/{id}
func (h *TodoHandler) GetTodo(sess *db.Session, w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	logEntry := h.entry(r, "GetTodo").WithField("todo_id", id)

	todo, err := sess.Get(r.Context(), id)
	if err != nil {
		storeError(w, logEntry, err, "failed to get todo")
		return
	}

	logEntry.Debug("todo retrieved")
	writeJSON(w, http.StatusOK, todo)
}

// UpdateTodo handles PUT /todos/{id}
func (h *TodoHandler) UpdateTodo(sess *db.Session, w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	logEntry := h.entry(r, "UpdateTodo").WithField("todo_id", id)

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Title == nil || req.Completed == nil {
		logEntry.Warn("title and completed are required")
		writeDetail(w, http.StatusUnprocessableEntity, "title and completed are required")
		return
	}

	todo, err := sess.Update(r.Context(), id, *req.Title, *req.Completed)
	if err != nil {
		storeError(w, logEntry, err, "failed to update todo")
		return
	}

	logEntry.Info("todo updated")
	writeJSON(w, http.StatusOK, todo)
}

// DeleteTodo handles DELETE /todos/{id}
func (h *TodoHandler) DeleteTodo(sess *db.Session, w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	logEntry := h.entry(r, "DeleteTodo").WithField("todo_id", id)

	if err := sess.Delete(r.Context(), id); err != nil {
		storeError(w, logEntry, err, "failed to delete todo")
		return
	}

	logEntry.Info("todo deleted")
	writeJSON(w, http.StatusOK, messageResponse{Message: "Todo deleted"})
}

// FilterTodos handles GET /todos/filter/{status}. Unrecognised statuses
// return every todo.
func (h *TodoHandler) FilterTodos(sess *db.Session, w http.ResponseWriter, r *http.Request) {
	status := models.ParseStatus(mux.Vars(r)["status"])
	logEntry := h.entry(r, "FilterTodos").WithField("status", status.String())

	todos, err := sess.Filter(r.Context(), status)
	if err != nil {
		storeError(w, logEntry, err, "failed to filter todos")
		return
	}

	logEntry.WithField("count", len(todos)).Debug("todos listed")
	writeJSON(w, http.StatusOK, todos)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Readyz reports whether the database answers a ping.
func (h *TodoHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.entry(r, "Readyz").WithError(err).Warn("database not ready")
		writeDetail(w, http.StatusServiceUnavailable, "database not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
