package application

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/user/ports"
)

// Event types emitted through the outbox. Consumers mirror identity fields
// from these; credential state is never part of any payload.
const (
	// eventTypeUserCreated announces a new canonical record.
	eventTypeUserCreated = "user.event.created"
	// eventTypeUserUpdated carries the post-update identity snapshot.
	eventTypeUserUpdated = "user.event.updated"
	// eventTypeUserDeleted announces removal of a canonical record.
	eventTypeUserDeleted = "user.event.deleted"
)

type userEventData struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// buildUserEvent wraps event data in the shared envelope. For creation the
// user id is blank here; the repository injects the generated id inside the
// same transaction that persists the row.
func (s *Service) buildUserEvent(eventType string, data userEventData, occurredAt time.Time) ports.OutboxEvent {
	envelope := map[string]any{
		"event_id":           uuid.NewString(),
		"event_type":         eventType,
		"occurred_at":        occurredAt.Format(time.RFC3339),
		"source_service":     s.cfg.ServiceName,
		"schema_version":     "1.0",
		"partition_key_path": "data.user_id",
		"partition_key":      data.UserID,
		"data":               data,
	}
	payload, _ := json.Marshal(envelope)
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: data.UserID,
		Payload:      payload,
		OccurredAt:   occurredAt,
	}
}
