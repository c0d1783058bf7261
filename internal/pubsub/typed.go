package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/nfrund/tafep-voice/internal/topicmgr"
)

// Event binds a topic name to its payload type.
type Event[T any] struct {
	name string
}

// NewEvent defines a typed event and registers it with topicmgr.Default.
// Topics under "system." or "client." are framework scoped; the rest belong
// to the module named by their first segment.
func NewEvent[T any](name, description string) Event[T] {
	module, _, _ := strings.Cut(name, ".")
	cfg := topicmgr.TopicConfig{
		Name:        name,
		Module:      module,
		Scope:       topicmgr.ScopeModule,
		Description: description,
		Metadata: map[string]any{
			"payload_fields": payloadFields[T](),
			"is_typed":       true,
		},
	}
	if module == "system" || module == "client" {
		cfg.Scope = topicmgr.ScopeFramework
		cfg.Module = ""
	}
	topicmgr.Default().MustRegister(cfg)
	return Event[T]{name: name}
}

func payloadFields[T any]() []string {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var fields []string
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if tag != "" && tag != "-" {
			fields = append(fields, tag)
		}
	}
	return fields
}

func (e Event[T]) Name() string { return e.name }

// Publish marshals payload and sends it on the event's topic.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], conversationID string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event.name, err)
	}
	return p.Publish(ctx, Message{Topic: event.name, ConversationID: conversationID, Payload: data})
}

// Decode unmarshals a message published for event.
func Decode[T any](event Event[T], msg Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", event.name, err)
	}
	return v, nil
}
