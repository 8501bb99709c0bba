package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/icdts/todo/internal/db"
	"github.com/icdts/todo/internal/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the todo endpoints and the operational routes behind the
// middleware chain. Outermost first: request id, logging, CORS, router.
func NewRouter(store *db.Store, logger *logrus.Logger, corsOrigins []string) http.Handler {
	h := NewTodoHandler(store, logger)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.HandleFunc("/", h.Root).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.Readyz).Methods(http.MethodGet)
	r.Handle("/metrics", middleware.MetricsHandler()).Methods(http.MethodGet)

	r.HandleFunc("/todos/", h.withSession(h.CreateTodo)).Methods(http.MethodPost)
	r.HandleFunc("/todos/filter/{status}", h.withSession(h.FilterTodos)).Methods(http.MethodGet)
	r.HandleFunc("/todos/{id}", h.withSession(h.GetTodo)).Methods(http.MethodGet)
	r.HandleFunc("/todos/{id}", h.withSession(h.UpdateTodo)).Methods(http.MethodPut)
	r.HandleFunc("/todos/{id}", h.withSession(h.DeleteTodo)).Methods(http.MethodDelete)

	r.Use(middleware.Metrics)

	var handler http.Handler = r
	handler = middleware.CORS(corsOrigins)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
