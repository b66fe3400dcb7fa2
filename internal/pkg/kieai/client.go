package kieai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrMissingTaskID = errors.New("kie.ai: missing taskId")
	ErrNotConfigured = errors.New("kie.ai: API key is missing")
)

// APIError is returned when Kie.ai answers with a non-200 envelope code.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Kie.ai API error: %s (code %d)", e.Msg, e.Code)
}

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the Kie.ai jobs API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
}

// NewClient builds a Kie.ai client from Options.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
		model:      model,
	}
}

// NewClientFromConfig builds a client from a loaded Config.
func NewClientFromConfig(cfg *Config) *Client {
	return NewClient(Options{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
}

// SubmitRequest describes one generation job.
type SubmitRequest struct {
	Prompt       string
	ImageURLs    []string
	AspectRatio  string
	Resolution   string
	OutputFormat string
	CallbackURL  string
}

type createTaskInput struct {
	Prompt       string   `json:"prompt"`
	ImageInput   []string `json:"image_input"`
	AspectRatio  string   `json:"aspect_ratio"`
	Resolution   string   `json:"resolution"`
	OutputFormat string   `json:"output_format"`
}

type createTaskRequest struct {
	Model       string          `json:"model"`
	Input       createTaskInput `json:"input"`
	CallBackURL string          `json:"callBackUrl,omitempty"`
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Submit creates a provider task and returns its correlation id.
func (c *Client) Submit(ctx context.Context, in SubmitRequest) (string, error) {
	payload := createTaskRequest{
		Model: c.model,
		Input: createTaskInput{
			Prompt:       in.Prompt,
			ImageInput:   in.ImageURLs,
			AspectRatio:  in.AspectRatio,
			Resolution:   in.Resolution,
			OutputFormat: in.OutputFormat,
		},
		CallBackURL: in.CallbackURL,
	}
	if payload.Input.ImageInput == nil {
		payload.Input.ImageInput = []string{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	env, err := c.do(ctx, http.MethodPost, c.baseURL+"/jobs/createTask", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var data struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("kie.ai: decode createTask data: %w", err)
	}
	if strings.TrimSpace(data.TaskID) == "" {
		return "", ErrMissingTaskID
	}
	return data.TaskID, nil
}

// Poll fetches the current state of a provider task.
func (c *Client) Poll(ctx context.Context, taskID string) (*TaskState, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, ErrMissingTaskID
	}
	endpoint := c.baseURL + "/jobs/recordInfo?taskId=" + url.QueryEscape(taskID)

	env, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var rec record
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		return nil, fmt.Errorf("kie.ai: decode recordInfo data: %w", err)
	}
	if rec.TaskID == "" {
		rec.TaskID = taskID
	}
	return &TaskState{
		TaskID:  rec.TaskID,
		State:   rec.State,
		Outcome: rec.interpret(),
		Raw:     append(json.RawMessage(nil), env.Data...),
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (*envelope, error) {
	if c == nil {
		return nil, errors.New("kie.ai client not configured")
	}
	if c.token == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("kie.ai: http %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("kie.ai: decode response: %w", err)
	}
	if out.Code != http.StatusOK {
		return nil, &APIError{Code: out.Code, Msg: out.Msg}
	}
	return &out, nil
}
