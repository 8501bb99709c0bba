package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/icdts/todo/internal/db"
	"github.com/icdts/todo/internal/models"
	"github.com/sirupsen/logrus"
)

func newTestRouter(t *testing.T) (http.Handler, *db.Store) {
	t.Helper()
	conn, err := db.Connect(db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := db.EnsureSchema(context.Background(), conn); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	store := db.NewStore(conn)
	t.Cleanup(func() { store.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRouter(store, logger, []string{"http://localhost:5173"}), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestRoot(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[messageResponse](t, rec); got.Message != "Hello World" {
		t.Fatalf("message = %q", got.Message)
	}
}

func TestTodoLifecycle(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/todos/", `{"title":"buy milk"}`)
	expectStatus(t, rec, http.StatusOK)
	created := decode[models.Todo](t, rec)
	if want := (models.Todo{ID: 1, Title: "buy milk", Completed: false}); created != want {
		t.Fatalf("created = %+v, want %+v", created, want)
	}

	rec = do(t, h, http.MethodPut, "/todos/1", `{"title":"buy milk","completed":true}`)
	expectStatus(t, rec, http.StatusOK)
	if updated := decode[models.Todo](t, rec); !updated.Completed || updated.ID != 1 {
		t.Fatalf("updated = %+v", updated)
	}

	rec = do(t, h, http.MethodGet, "/todos/filter/completed", "")
	expectStatus(t, rec, http.StatusOK)
	if todos := decode[[]models.Todo](t, rec); len(todos) != 1 || todos[0].ID != 1 {
		t.Fatalf("completed filter = %+v", todos)
	}

	rec = do(t, h, http.MethodDelete, "/todos/1", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[messageResponse](t, rec); got.Message != "Todo deleted" {
		t.Fatalf("delete message = %q", got.Message)
	}

	rec = do(t, h, http.MethodGet, "/todos/1", "")
	expectStatus(t, rec, http.StatusNotFound)
	if got := decode[detailResponse](t, rec); got.Detail != "Todo not found" {
		t.Fatalf("detail = %q", got.Detail)
	}
}

func TestCreateHonoursCompleted(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/todos/", `{"title":"already done","completed":true}`)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[models.Todo](t, rec); !got.Completed {
		t.Fatalf("completed = false, want true")
	}
}

func TestGetReturnsCreated(t *testing.T) {
	h, _ := newTestRouter(t)

	created := decode[models.Todo](t, do(t, h, http.MethodPost, "/todos/", `{"title":"walk dog"}`))
	rec := do(t, h, http.MethodGet, "/todos/"+strconv.FormatInt(created.ID, 10), "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[models.Todo](t, rec); got != created {
		t.Fatalf("get = %+v, want %+v", got, created)
	}
}

func TestNotFound(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/todos/99", ""},
		{http.MethodPut, "/todos/99", `{"title":"x","completed":false}`},
		{http.MethodDelete, "/todos/99", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			expectStatus(t, rec, http.StatusNotFound)
			if got := decode[detailResponse](t, rec); got.Detail != "Todo not found" {
				t.Fatalf("detail = %q", got.Detail)
			}
		})
	}
}

func TestUpdateKeepsID(t *testing.T) {
	h, _ := newTestRouter(t)
	do(t, h, http.MethodPost, "/todos/", `{"title":"one"}`)
	do(t, h, http.MethodPost, "/todos/", `{"title":"two"}`)

	rec := do(t, h, http.MethodPut, "/todos/2", `{"id":7,"title":"renamed","completed":false}`)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[models.Todo](t, rec); got.ID != 2 || got.Title != "renamed" {
		t.Fatalf("updated = %+v", got)
	}
	expectStatus(t, do(t, h, http.MethodGet, "/todos/7", ""), http.StatusNotFound)
}

func TestFilter(t *testing.T) {
	h, _ := newTestRouter(t)
	do(t, h, http.MethodPost, "/todos/", `{"title":"a"}`)
	do(t, h, http.MethodPost, "/todos/", `{"title":"b","completed":true}`)
	do(t, h, http.MethodPost, "/todos/", `{"title":"c"}`)

	tests := []struct {
		status string
		want   []int64
	}{
		{"completed", []int64{2}},
		{"pending", []int64{1, 3}},
		{"all", []int64{1, 2, 3}},
		{"anything-else", []int64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/todos/filter/"+tt.status, "")
			expectStatus(t, rec, http.StatusOK)
			todos := decode[[]models.Todo](t, rec)
			if len(todos) != len(tt.want) {
				t.Fatalf("got %+v, want ids %v", todos, tt.want)
			}
			for i, todo := range todos {
				if todo.ID != tt.want[i] {
					t.Errorf("todos[%d].ID = %d, want %d", i, todo.ID, tt.want[i])
				}
			}
		})
	}
}

func TestFilterEmptyIsArray(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/todos/filter/completed", "")
	expectStatus(t, rec, http.StatusOK)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("body = %q, want []", body)
	}
}

func TestValidation(t *testing.T) {
	h, _ := newTestRouter(t)
	do(t, h, http.MethodPost, "/todos/", `{"title":"exists"}`)

	tests := []struct {
		name, method, path, body string
	}{
		{"create malformed", http.MethodPost, "/todos/", `{"title":`},
		{"create missing title", http.MethodPost, "/todos/", `{"completed":true}`},
		{"create null title", http.MethodPost, "/todos/", `{"title":null}`},
		{"update missing completed", http.MethodPut, "/todos/1", `{"title":"x"}`},
		{"update missing title", http.MethodPut, "/todos/1", `{"completed":true}`},
		{"non-integer id", http.MethodGet, "/todos/abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, do(t, h, tt.method, tt.path, tt.body), http.StatusUnprocessableEntity)
		})
	}

	// Rejected updates leave the record untouched.
	rec := do(t, h, http.MethodGet, "/todos/1", "")
	if got := decode[models.Todo](t, rec); got.Title != "exists" || got.Completed {
		t.Fatalf("todo changed by rejected update: %+v", got)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h, _ := newTestRouter(t)
	expectStatus(t, do(t, h, http.MethodGet, "/nope", ""), http.StatusNotFound)
	expectStatus(t, do(t, h, http.MethodPatch, "/todos/1", `{}`), http.StatusMethodNotAllowed)
}

func TestOperationalRoutes(t *testing.T) {
	h, store := newTestRouter(t)

	expectStatus(t, do(t, h, http.MethodGet, "/healthz", ""), http.StatusOK)
	expectStatus(t, do(t, h, http.MethodGet, "/readyz", ""), http.StatusOK)

	do(t, h, http.MethodGet, "/", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatal("metrics output missing http_requests_total")
	}

	store.Close()
	expectStatus(t, do(t, h, http.MethodGet, "/readyz", ""), http.StatusServiceUnavailable)
}

func TestRequestIDHeader(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID response header")
	}
}
