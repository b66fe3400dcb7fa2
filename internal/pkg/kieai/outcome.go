package kieai

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Provider states as reported by recordInfo and the callback.
const (
	StateSuccess = "success"
	StateFail    = "fail"
)

// Outcome is the interpreted result of a provider task. It is one of
// Success, Failure or Pending.
type Outcome interface {
	outcome()
}

// Success carries the result URLs; the list may be empty.
type Success struct {
	ResultURLs []string
}

// Failure carries the provider's failure message, possibly empty.
type Failure struct {
	Reason string
}

// Pending means the provider is still working (waiting, queuing, generating).
type Pending struct {
	State string
}

func (Success) outcome() {}
func (Failure) outcome() {}
func (Pending) outcome() {}

// TaskState is a provider snapshot of one task. Raw holds the payload exactly
// as received so it can be stored for diagnostics.
type TaskState struct {
	TaskID  string
	State   string
	Outcome Outcome
	Raw     json.RawMessage
}

// record mirrors the data object of recordInfo and of callbacks.
type record struct {
	TaskID     string          `json:"taskId"`
	Model      string          `json:"model,omitempty"`
	State      string          `json:"state"`
	ResultJSON json.RawMessage `json:"resultJson,omitempty"`
	FailCode   *string         `json:"failCode,omitempty"`
	FailMsg    *string         `json:"failMsg,omitempty"`
}

func (r *record) interpret() Outcome {
	switch strings.ToLower(strings.TrimSpace(r.State)) {
	case StateSuccess:
		return Success{ResultURLs: extractResultURLs(r.ResultJSON)}
	case StateFail:
		reason := ""
		if r.FailMsg != nil {
			reason = strings.TrimSpace(*r.FailMsg)
		}
		return Failure{Reason: reason}
	default:
		return Pending{State: r.State}
	}
}

type resultPayload struct {
	ResultURLs []string `json:"resultUrls"`
}

// extractResultURLs accepts resultJson either as an embedded JSON string or as
// an object. Anything unparsable yields no URLs.
func extractResultURLs(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil
		}
		raw = []byte(encoded)
	}

	var payload resultPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	urls := make([]string, 0, len(payload.ResultURLs))
	for _, u := range payload.ResultURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// ParseCallback interprets a callback body. The task fields may be wrapped in
// a "data" object or sit at the top level.
func ParseCallback(body []byte) (*TaskState, error) {
	var envelope struct {
		Data *record `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	rec := envelope.Data
	if rec == nil {
		rec = &record{}
		if err := json.Unmarshal(body, rec); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(rec.TaskID) == "" {
		return nil, ErrMissingTaskID
	}

	return &TaskState{
		TaskID:  strings.TrimSpace(rec.TaskID),
		State:   rec.State,
		Outcome: rec.interpret(),
		Raw:     append(json.RawMessage(nil), body...),
	}, nil
}
