package events

import (
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/HuyNguyen260398/bob/messages"
)

var (
	updateJSON   = []byte(`{"type":"update"}`)
	responseJSON = []byte(`{"type":"response"}`)
	errorJSON    = []byte(`{"type":"error"}`)
)

// MarshalJSON implements custom JSON marshaling for Update.
func (u Update) MarshalJSON() ([]byte, error) {
	result, err := marshalEnvelope(updateJSON, u.RunID, u.ThreadID, u.Timestamp, u.Meta)
	if err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "node", u.Node); err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "iteration", u.Iteration); err != nil {
		return nil, err
	}
	if len(u.Messages) > 0 {
		msgs, err := json.Marshal(u.Messages)
		if err != nil {
			return nil, err
		}
		if result, err = sjson.SetRawBytes(result, "messages", msgs); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Update.
func (u *Update) UnmarshalJSON(data []byte) error {
	parsed, err := parseEnvelope(data, "update")
	if err != nil {
		return err
	}
	u.RunID = parsed.runID
	u.ThreadID = parsed.threadID
	u.Timestamp = parsed.timestamp
	u.Meta = parsed.meta
	u.Node = gjson.GetBytes(data, "node").String()
	u.Iteration = int(gjson.GetBytes(data, "iteration").Int())

	if raw := gjson.GetBytes(data, "messages"); raw.Exists() {
		msgs, err := messages.UnmarshalMessages([]byte(raw.Raw))
		if err != nil {
			return err
		}
		u.Messages = msgs
	}
	return nil
}

// MarshalJSON implements custom JSON marshaling for Response.
func (r Response) MarshalJSON() ([]byte, error) {
	result, err := marshalEnvelope(responseJSON, r.RunID, r.ThreadID, r.Timestamp, r.Meta)
	if err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "content", r.Content); err != nil {
		return nil, err
	}
	if r.Truncated {
		if result, err = sjson.SetBytes(result, "truncated", true); err != nil {
			return nil, err
		}
	}
	usage, err := json.Marshal(r.Usage)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(result, "usage", usage)
}

// UnmarshalJSON implements custom JSON unmarshaling for Response.
func (r *Response) UnmarshalJSON(data []byte) error {
	parsed, err := parseEnvelope(data, "response")
	if err != nil {
		return err
	}
	r.RunID = parsed.runID
	r.ThreadID = parsed.threadID
	r.Timestamp = parsed.timestamp
	r.Meta = parsed.meta
	r.Content = gjson.GetBytes(data, "content").String()
	r.Truncated = gjson.GetBytes(data, "truncated").Bool()

	if usage := gjson.GetBytes(data, "usage"); usage.Exists() {
		if err := json.Unmarshal([]byte(usage.Raw), &r.Usage); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON implements custom JSON marshaling for Error.
func (e Error) MarshalJSON() ([]byte, error) {
	result, err := marshalEnvelope(errorJSON, e.RunID, e.ThreadID, e.Timestamp, e.Meta)
	if err != nil {
		return nil, err
	}
	if e.Err != nil {
		return sjson.SetBytes(result, "error", e.Err.Error())
	}
	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Error.
func (e *Error) UnmarshalJSON(data []byte) error {
	parsed, err := parseEnvelope(data, "error")
	if err != nil {
		return err
	}
	e.RunID = parsed.runID
	e.ThreadID = parsed.threadID
	e.Timestamp = parsed.timestamp
	e.Meta = parsed.meta
	if msg := gjson.GetBytes(data, "error"); msg.Exists() {
		e.Err = errors.New(msg.String())
	}
	return nil
}

// ToJSON serializes any event with its type marker intact.
func ToJSON(event Event) ([]byte, error) {
	switch ev := event.(type) {
	case Update:
		return ev.MarshalJSON()
	case Response:
		return ev.MarshalJSON()
	case Error:
		return ev.MarshalJSON()
	default:
		return nil, fmt.Errorf("events: unknown event type %T", event)
	}
}

// FromJSON deserializes an event by dispatching on its type marker.
func FromJSON(data []byte) (Event, error) {
	switch kind := gjson.GetBytes(data, "type").String(); kind {
	case "update":
		var ev Update
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "response":
		var ev Response
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "error":
		var ev Error
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("events: unknown event kind %q", kind)
	}
}

type envelope struct {
	runID     uuid.UUID
	threadID  string
	timestamp strfmt.DateTime
	meta      gjson.Result
}

func marshalEnvelope(base []byte, runID uuid.UUID, threadID string, ts strfmt.DateTime, meta gjson.Result) ([]byte, error) {
	result, err := sjson.SetBytes(base, "run_id", runID.String())
	if err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "thread_id", threadID); err != nil {
		return nil, err
	}
	if !ts.IsZero() {
		if result, err = sjson.SetBytes(result, "timestamp", ts.String()); err != nil {
			return nil, err
		}
	}
	if meta.Exists() {
		if result, err = sjson.SetRawBytes(result, "meta", []byte(meta.Raw)); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func parseEnvelope(data []byte, wantKind string) (envelope, error) {
	if !gjson.ValidBytes(data) {
		return envelope{}, fmt.Errorf("events: invalid json: %s", data)
	}
	if kind := gjson.GetBytes(data, "type").String(); kind != wantKind {
		return envelope{}, fmt.Errorf("events: expected kind %q, got %q", wantKind, kind)
	}

	var env envelope
	if raw := gjson.GetBytes(data, "run_id"); raw.Exists() {
		id, err := uuid.Parse(raw.String())
		if err != nil {
			return envelope{}, fmt.Errorf("events: invalid run_id: %w", err)
		}
		env.runID = id
	}
	env.threadID = gjson.GetBytes(data, "thread_id").String()
	if raw := gjson.GetBytes(data, "timestamp"); raw.Exists() {
		if err := env.timestamp.UnmarshalText([]byte(raw.String())); err != nil {
			return envelope{}, fmt.Errorf("events: invalid timestamp: %w", err)
		}
	}
	env.meta = gjson.GetBytes(data, "meta")
	return env, nil
}
