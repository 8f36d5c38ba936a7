package query

import (
	"context"
	"time"
)

// ModelEventType names a change to the query model.
type ModelEventType string

const (
	TableAdded    ModelEventType = "table:add"
	TableRemoved  ModelEventType = "table:remove"
	ColumnToggled ModelEventType = "column:toggle"
	ColumnUpdated ModelEventType = "column:update"
	JoinAdded     ModelEventType = "join:add"
	JoinUpdated   ModelEventType = "join:update"
	JoinRemoved   ModelEventType = "join:remove"
	FilterAdded   ModelEventType = "filter:add"
	FilterUpdated ModelEventType = "filter:update"
	FilterRemoved ModelEventType = "filter:remove"
	SortChanged   ModelEventType = "sort:change"
	LimitChanged  ModelEventType = "limit:change"
	SQLGenerated  ModelEventType = "sql:generate"
	ModelReset    ModelEventType = "model:reset"
)

// ModelEvent is published on the model's event bus after a mutation.
// Payload carries a copy of the affected entity, never a live reference.
type ModelEvent struct {
	Type      ModelEventType `json:"type"`
	Timestamp int64          `json:"timestamp"` // Unix milliseconds
	Payload   any            `json:"payload,omitempty"`
}

// EventCallbackFunction receives model events.
type EventCallbackFunction func(ctx context.Context, event ModelEvent) error

// subscription tracks a registered callback.
type subscription struct {
	event       ModelEventType
	unsubscribe func()
}

func createEvent(eventType ModelEventType, payload any) ModelEvent {
	return ModelEvent{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}
