package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/storage"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/timer"
)

// HTTPClient implements DataSource and Commander by calling the daemon's
// REST API. Used for remote MCP mode where the binary runs locally (stdio)
// but the session lives on the server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time checks: HTTPClient satisfies both interfaces.
var (
	_ DataSource = (*HTTPClient)(nil)
	_ Commander  = (*HTTPClient)(nil)
)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	return c.do(req, path)
}

func (c *HTTPClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, path)
}

func (c *HTTPClient) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		// Command failures arrive as {"error": "..."}; surface the message.
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("httpclient: %s: %s", path, e.Error)
		}
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func (c *HTTPClient) ActiveSession(ctx context.Context) (*SessionState, error) {
	body, err := c.get(ctx, "/api/v1/session", nil)
	if err != nil {
		return nil, err
	}

	var state SessionState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("httpclient: decode session state: %w", err)
	}
	return &state, nil
}

func (c *HTTPClient) ListTemplates(ctx context.Context) ([]models.WorkoutTemplate, error) {
	body, err := c.get(ctx, "/api/v1/templates", nil)
	if err != nil {
		return nil, err
	}

	var templates []models.WorkoutTemplate
	if err := json.Unmarshal(body, &templates); err != nil {
		return nil, fmt.Errorf("httpclient: decode templates: %w", err)
	}
	return templates, nil
}

func (c *HTTPClient) ExerciseHistory(ctx context.Context, exercise string, limit int) ([]storage.SetRow, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.get(ctx, "/api/v1/history/exercises/"+url.PathEscape(exercise), params)
	if err != nil {
		return nil, err
	}

	var rows []storage.SetRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode exercise history: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) PersonalRecords(ctx context.Context, exercise string) ([]storage.PersonalRecord, error) {
	params := url.Values{}
	params.Set("exercise", exercise)

	body, err := c.get(ctx, "/api/v1/records", params)
	if err != nil {
		return nil, err
	}

	var records []storage.PersonalRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("httpclient: decode records: %w", err)
	}
	return records, nil
}

func (c *HTTPClient) VolumeSummary(ctx context.Context, start, end time.Time, bucket storage.VolumeBucket) ([]storage.VolumePeriod, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	params.Set("bucket", string(bucket))

	body, err := c.get(ctx, "/api/v1/volume", params)
	if err != nil {
		return nil, err
	}

	var periods []storage.VolumePeriod
	if err := json.Unmarshal(body, &periods); err != nil {
		return nil, fmt.Errorf("httpclient: decode volume summary: %w", err)
	}
	return periods, nil
}

func (c *HTTPClient) StartWorkout(ctx context.Context, template string) (*models.Session, error) {
	body, err := c.post(ctx, "/api/v1/session/start", map[string]string{"template": template})
	if err != nil {
		return nil, err
	}
	return decodeSession(body)
}

func (c *HTTPClient) LogSet(ctx context.Context, exerciseIndex int, weight float64, reps int, rpe *float64) (*models.Session, error) {
	path := fmt.Sprintf("/api/v1/session/exercises/%d/sets", exerciseIndex)
	body, err := c.post(ctx, path, map[string]any{"weight": weight, "reps": reps, "rpe": rpe})
	if err != nil {
		return nil, err
	}
	return decodeSession(body)
}

func (c *HTTPClient) FinishWorkout(ctx context.Context) (*models.Session, error) {
	body, err := c.post(ctx, "/api/v1/session/finish", nil)
	if err != nil {
		return nil, err
	}
	return decodeSession(body)
}

func (c *HTTPClient) DiscardWorkout(ctx context.Context) error {
	_, err := c.post(ctx, "/api/v1/session/discard", nil)
	return err
}

func (c *HTTPClient) StartRestTimer(ctx context.Context, exerciseIndex, seconds int) (timer.RestSnapshot, error) {
	body, err := c.post(ctx, "/api/v1/session/rest/start", map[string]int{
		"exerciseIndex": exerciseIndex,
		"seconds":       seconds,
	})
	if err != nil {
		return timer.RestSnapshot{}, err
	}
	return decodeRestSnapshot(body)
}

func (c *HTTPClient) ExtendRestTimer(ctx context.Context, seconds int) (timer.RestSnapshot, error) {
	body, err := c.post(ctx, "/api/v1/session/rest/add", map[string]int{"seconds": seconds})
	if err != nil {
		return timer.RestSnapshot{}, err
	}
	return decodeRestSnapshot(body)
}

func decodeSession(body []byte) (*models.Session, error) {
	var sess models.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("httpclient: decode session: %w", err)
	}
	return &sess, nil
}

func decodeRestSnapshot(body []byte) (timer.RestSnapshot, error) {
	var snap timer.RestSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return timer.RestSnapshot{}, fmt.Errorf("httpclient: decode rest timer: %w", err)
	}
	return snap, nil
}
