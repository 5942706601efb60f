package todoist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harrisonrobin/lmsync/pkg/dates"
	"github.com/harrisonrobin/lmsync/pkg/model"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		httpClient: srv.Client(),
		baseURL:    srv.URL,
		syncURL:    srv.URL + "/sync",
		now:        func() time.Time { return time.Date(2026, time.March, 1, 9, 0, 0, 0, time.Local) },
	}
}

func TestGetOrCreateProjectExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Project{{ID: "p-1", Name: "School Assignments"}})
	}))
	defer srv.Close()

	id, err := testClient(srv).GetOrCreateProject(context.Background(), "School Assignments")
	if err != nil {
		t.Fatalf("GetOrCreateProject: %v", err)
	}
	if id != "p-1" {
		t.Errorf("id = %q, want p-1", id)
	}
}

func TestGetOrCreateProjectCreates(t *testing.T) {
	var created map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]Project{{ID: "p-9", Name: "Other"}})
		case http.MethodPost:
			json.NewDecoder(r.Body).Decode(&created)
			json.NewEncoder(w).Encode(Project{ID: "p-new", Name: created["name"]})
		}
	}))
	defer srv.Close()

	id, err := testClient(srv).GetOrCreateProject(context.Background(), "School Assignments")
	if err != nil {
		t.Fatalf("GetOrCreateProject: %v", err)
	}
	if id != "p-new" {
		t.Errorf("id = %q, want p-new", id)
	}
	if created["name"] != "School Assignments" {
		t.Errorf("created name = %q", created["name"])
	}
}

func TestCreateTaskPayload(t *testing.T) {
	var payload taskPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&payload)
		json.NewEncoder(w).Encode(Task{ID: "t-1", Content: payload.Content})
	}))
	defer srv.Close()

	rec := model.AssignmentRecord{
		ID:         "42",
		Title:      "Essay",
		CourseCode: "ENG210",
		DueDate:    "2026-03-03",
		OriginURL:  "https://lms.example.edu/view.php?id=42",
	}
	task, err := testClient(srv).CreateTask(context.Background(), rec, "p-1", dates.ModeSmart)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID != "t-1" {
		t.Errorf("task id = %q", task.ID)
	}
	if payload.ProjectID != "p-1" {
		t.Errorf("project id = %q", payload.ProjectID)
	}
	if DecodeLinkage(payload.Description) != "42" {
		t.Errorf("payload description carries no linkage: %q", payload.Description)
	}
	if payload.DueDate != "2026-03-02" {
		t.Errorf("due date = %q, want smart-mode backoff", payload.DueDate)
	}
}

func TestListCompletedTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sync/completed/get_all" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("annotate_items") != "true" {
			t.Errorf("annotate_items not requested")
		}
		w.Write([]byte(`{"items":[{"task_id":"t-1","content":"ENG210 - Essay","completed_at":"2026-02-20T10:00:00Z","item_object":{"id":"t-1","description":"🔗 Task ID: 42"}}]}`))
	}))
	defer srv.Close()

	tasks, err := testClient(srv).ListCompletedTasks(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("ListCompletedTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks", len(tasks))
	}
	if !tasks[0].IsCompleted {
		t.Errorf("task not marked completed")
	}
	if DecodeLinkage(tasks[0].Description) != "42" {
		t.Errorf("description lost in mapping: %q", tasks[0].Description)
	}
}

func TestAPIErrorTyping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv).GetTask(context.Background(), "t-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an *APIError", err)
	}
	if !apiErr.IsAuth() {
		t.Errorf("status %d not reported as auth failure", apiErr.StatusCode)
	}
	if apiErr.IsNotFound() {
		t.Errorf("401 misreported as not found")
	}
}

func TestCloseAndReopen(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := testClient(srv)
	if err := c.CloseTask(context.Background(), "t-1"); err != nil {
		t.Fatalf("CloseTask: %v", err)
	}
	if err := c.ReopenTask(context.Background(), "t-1"); err != nil {
		t.Fatalf("ReopenTask: %v", err)
	}
	if err := c.DeleteTask(context.Background(), "t-1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	want := []string{"POST /tasks/t-1/close", "POST /tasks/t-1/reopen", "DELETE /tasks/t-1"}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("call %d = %q, want %q", i, paths[i], p)
		}
	}
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	if !testClient(srv).TestConnection(context.Background()) {
		t.Errorf("TestConnection failed against a healthy server")
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer bad.Close()
	if testClient(bad).TestConnection(context.Background()) {
		t.Errorf("TestConnection passed with a rejected credential")
	}
}
