package messages

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Payload kinds used as type markers in the serialized form. The role
// alone is not enough: both plain replies and tool-call requests carry
// the assistant role.
const (
	kindUser         = "user"
	kindAssistant    = "assistant"
	kindToolCall     = "tool_call"
	kindToolResponse = "tool_response"
)

func kindOf(payload ModelMessage) string {
	switch payload.(type) {
	case UserMessage:
		return kindUser
	case AssistantMessage:
		return kindAssistant
	case ToolCallMessage:
		return kindToolCall
	case ToolResponse:
		return kindToolResponse
	default:
		return ""
	}
}

// MarshalJSON serializes the envelope with an explicit "kind" type marker
// so the payload union survives a round trip.
func (m Message[T]) MarshalJSON() ([]byte, error) {
	kind := kindOf(m.Payload)
	if kind == "" {
		return nil, fmt.Errorf("unknown message payload type %T", m.Payload)
	}

	type envelope struct {
		Kind      string `json:"kind"`
		RunID     string `json:"run_id,omitempty"`
		TurnID    string `json:"turn_id,omitempty"`
		Sender    string `json:"sender,omitempty"`
		Timestamp string `json:"timestamp"`
		Payload   any    `json:"payload"`
	}

	env := envelope{
		Kind:      kind,
		Sender:    m.Sender,
		Timestamp: m.Timestamp.String(),
		Payload:   m.Payload,
	}
	if m.RunID != uuid.Nil {
		env.RunID = m.RunID.String()
	}
	if m.TurnID != uuid.Nil {
		env.TurnID = m.TurnID.String()
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	if m.Meta.Exists() {
		data, err = sjson.SetRawBytes(data, "meta", []byte(m.Meta.Raw))
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// UnmarshalMessage deserializes one type-erased envelope produced by
// MarshalJSON, dispatching on the "kind" marker.
func UnmarshalMessage(data []byte) (Message[ModelMessage], error) {
	var out Message[ModelMessage]
	if !gjson.ValidBytes(data) {
		return out, fmt.Errorf("invalid json: %s", data)
	}
	jv := gjson.ParseBytes(data)

	payload := jv.Get("payload")
	if !payload.Exists() {
		return out, fmt.Errorf("message is missing required field 'payload'")
	}

	switch kind := jv.Get("kind").String(); kind {
	case kindUser:
		var p UserMessage
		if err := json.Unmarshal([]byte(payload.Raw), &p); err != nil {
			return out, fmt.Errorf("invalid user payload: %w", err)
		}
		out.Payload = p
	case kindAssistant:
		var p AssistantMessage
		if err := json.Unmarshal([]byte(payload.Raw), &p); err != nil {
			return out, fmt.Errorf("invalid assistant payload: %w", err)
		}
		out.Payload = p
	case kindToolCall:
		var p ToolCallMessage
		if err := json.Unmarshal([]byte(payload.Raw), &p); err != nil {
			return out, fmt.Errorf("invalid tool_call payload: %w", err)
		}
		out.Payload = p
	case kindToolResponse:
		var p ToolResponse
		if err := json.Unmarshal([]byte(payload.Raw), &p); err != nil {
			return out, fmt.Errorf("invalid tool_response payload: %w", err)
		}
		out.Payload = p
	default:
		return out, fmt.Errorf("message has unknown kind %q", kind)
	}

	if v := jv.Get("run_id"); v.Exists() {
		if err := out.RunID.UnmarshalText([]byte(v.String())); err != nil {
			return out, fmt.Errorf("invalid run_id: %w", err)
		}
	}
	if v := jv.Get("turn_id"); v.Exists() {
		if err := out.TurnID.UnmarshalText([]byte(v.String())); err != nil {
			return out, fmt.Errorf("invalid turn_id: %w", err)
		}
	}
	out.Sender = jv.Get("sender").String()
	if v := jv.Get("timestamp"); v.Exists() {
		if err := out.Timestamp.UnmarshalText([]byte(v.String())); err != nil {
			return out, fmt.Errorf("invalid timestamp: %w", err)
		}
	}
	if meta := jv.Get("meta"); meta.Exists() {
		out.Meta = meta
	}
	return out, nil
}

// UnmarshalMessages deserializes a JSON array of envelopes.
func UnmarshalMessages(data []byte) ([]Message[ModelMessage], error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}
	jv := gjson.ParseBytes(data)
	if !jv.IsArray() {
		return nil, fmt.Errorf("expected a json array of messages")
	}
	items := jv.Array()
	out := make([]Message[ModelMessage], 0, len(items))
	for i, item := range items {
		msg, err := UnmarshalMessage([]byte(item.Raw))
		if err != nil {
			return nil, fmt.Errorf("message at %d: %w", i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}
