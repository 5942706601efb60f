// Package todoist is a thin stateless client for the Todoist REST API,
// plus the Sync API call needed to see completed tasks.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/harrisonrobin/lmsync/pkg/dates"
	"github.com/harrisonrobin/lmsync/pkg/model"
)

const (
	defaultBaseURL = "https://api.todoist.com/rest/v2"
	defaultSyncURL = "https://api.todoist.com/sync/v9"
)

// APIError is a remote call failure: the HTTP status and response body.
// Callers decide whether it is a per-record sync error or a run abort.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("todoist: status %d: %s", e.StatusCode, e.Body)
}

// IsAuth reports whether the failure is a credential problem.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether the remote resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client talks to the remote task provider. It holds no state beyond the
// bearer credential baked into its HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	syncURL    string
	now        func() time.Time
}

// NewClient builds a client around an opaque bearer token.
func NewClient(token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		httpClient: oauth2.NewClient(context.Background(), src),
		baseURL:    defaultBaseURL,
		syncURL:    defaultSyncURL,
		now:        time.Now,
	}
}

// TestConnection checks that the credential can list projects.
func (c *Client) TestConnection(ctx context.Context) bool {
	var projects []Project
	return c.do(ctx, http.MethodGet, c.baseURL+"/projects", nil, &projects) == nil
}

// GetOrCreateProject looks up the named project, creating it when absent.
// A failed listing is treated as "not found" and creation is attempted; if
// the remote side then rejects a duplicate name that surfaces as an
// APIError rather than being retried.
func (c *Client) GetOrCreateProject(ctx context.Context, name string) (string, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/projects", nil, &projects); err == nil {
		for _, p := range projects {
			if p.Name == name {
				return p.ID, nil
			}
		}
	}

	var created Project
	err := c.do(ctx, http.MethodPost, c.baseURL+"/projects",
		map[string]string{"name": name, "color": "blue"}, &created)
	if err != nil {
		return "", fmt.Errorf("failed to create project %q: %w", name, err)
	}
	return created.ID, nil
}

// ListActiveTasks returns the project's open tasks. Completed tasks are
// never included here; see ListCompletedTasks.
func (c *Client) ListActiveTasks(ctx context.Context, projectID string) ([]Task, error) {
	var tasks []Task
	u := c.baseURL + "/tasks?project_id=" + url.QueryEscape(projectID)
	if err := c.do(ctx, http.MethodGet, u, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// completedResponse is the Sync API completed/get_all shape. With
// annotate_items each item carries the full task object, which is where
// the description (and so the linkage) lives.
type completedResponse struct {
	Items []struct {
		TaskID      string `json:"task_id"`
		Content     string `json:"content"`
		CompletedAt string `json:"completed_at"`
		ItemObject  *struct {
			ID          string `json:"id"`
			Description string `json:"description"`
		} `json:"item_object"`
	} `json:"items"`
}

// ListCompletedTasks returns the project's completed tasks. The standard
// listing omits them, so this goes through the Sync API.
func (c *Client) ListCompletedTasks(ctx context.Context, projectID string) ([]Task, error) {
	u := c.syncURL + "/completed/get_all?project_id=" + url.QueryEscape(projectID) + "&annotate_items=true"
	var resp completedResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(resp.Items))
	for _, item := range resp.Items {
		t := Task{ID: item.TaskID, Content: item.Content, IsCompleted: true}
		if item.ItemObject != nil {
			t.Description = item.ItemObject.Description
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/tasks/"+url.PathEscape(taskID), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a remote task for the record under the given date
// policy and returns it.
func (c *Client) CreateTask(ctx context.Context, rec model.AssignmentRecord, projectID string, mode dates.Mode) (*Task, error) {
	payload := buildPayload(rec, projectID, mode, c.now())
	var task Task
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/tasks", payload, &task); err != nil {
		return nil, fmt.Errorf("failed to create task for %q: %w", rec.Title, err)
	}
	return &task, nil
}

// UpdateTask rewrites an existing remote task from the record.
func (c *Client) UpdateTask(ctx context.Context, taskID string, rec model.AssignmentRecord, mode dates.Mode) (*Task, error) {
	payload := buildPayload(rec, "", mode, c.now())
	var task Task
	u := c.baseURL + "/tasks/" + url.PathEscape(taskID)
	if err := c.do(ctx, http.MethodPost, u, payload, &task); err != nil {
		return nil, fmt.Errorf("failed to update task for %q: %w", rec.Title, err)
	}
	return &task, nil
}

// CloseTask marks a remote task complete.
func (c *Client) CloseTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodPost, c.baseURL+"/tasks/"+url.PathEscape(taskID)+"/close", nil, nil)
}

// ReopenTask reopens a previously closed task.
func (c *Client) ReopenTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodPost, c.baseURL+"/tasks/"+url.PathEscape(taskID)+"/reopen", nil, nil)
}

// DeleteTask removes a remote task permanently.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, c.baseURL+"/tasks/"+url.PathEscape(taskID), nil, nil)
}

// do performs one HTTP call. Non-2xx responses become *APIError; out, when
// non-nil, receives the decoded JSON body.
func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(text))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
