package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
	"github.com/leocisternasa/mediprotek-test/internal/auth/ports"
)

const (
	eventTypeUserCreated = "user.event.created"
	eventTypeUserUpdated = "user.event.updated"
	eventTypeUserDeleted = "user.event.deleted"
)

// UserEventEnvelope is the versioned wrapper carried on the user lifecycle
// topic.
type UserEventEnvelope struct {
	EventID       string        `json:"event_id"`
	EventType     string        `json:"event_type"`
	OccurredAt    string        `json:"occurred_at"`
	SourceService string        `json:"source_service"`
	SchemaVersion string        `json:"schema_version"`
	PartitionKey  string        `json:"partition_key"`
	Data          UserEventData `json:"data"`
}

// UserEventData is the identity payload mirrored into the credential store.
type UserEventData struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	UpdatedAt string `json:"updated_at"`
}

// HandleUserEvent applies one lifecycle event to the local mirror. Events are
// deduplicated by event_id so at-least-once delivery stays safe; unknown
// event types are acknowledged and skipped.
func (s *Service) HandleUserEvent(ctx context.Context, raw []byte) error {
	var envelope UserEventEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode user event: %w", err)
	}
	if envelope.EventID == "" {
		return fmt.Errorf("%w: user event missing event_id", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	duplicate, err := s.eventDedup.IsDuplicate(ctx, envelope.EventID, now)
	if err != nil {
		return fmt.Errorf("dedup lookup for event %s: %w", envelope.EventID, err)
	}
	if duplicate {
		s.authLogger().DebugContext(ctx, "duplicate user event skipped",
			"operation", "handle_user_event",
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
		)
		return nil
	}

	switch envelope.EventType {
	case eventTypeUserCreated:
		// The credential row is written by the registration path, which
		// owns the password hash. The event only needs a dedup marker.
	case eventTypeUserUpdated:
		if err := s.applyIdentityUpdate(ctx, envelope.Data, now); err != nil {
			return err
		}
	case eventTypeUserDeleted:
		userID, err := uuid.Parse(envelope.Data.UserID)
		if err != nil {
			return fmt.Errorf("%w: user event %s has invalid user_id", domain.ErrInvalidInput, envelope.EventID)
		}
		if err := s.credentials.Delete(ctx, userID); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete mirrored credential %s: %w", userID, err)
		}
	default:
		s.authLogger().WarnContext(ctx, "unknown user event type skipped",
			"operation", "handle_user_event",
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
		)
	}

	if err := s.eventDedup.MarkProcessed(ctx, envelope.EventID, envelope.EventType, now.Add(s.cfg.EventDedupTTL)); err != nil {
		return fmt.Errorf("mark event %s processed: %w", envelope.EventID, err)
	}
	return nil
}

func (s *Service) applyIdentityUpdate(ctx context.Context, data UserEventData, now time.Time) error {
	userID, err := uuid.Parse(data.UserID)
	if err != nil {
		return fmt.Errorf("%w: user event has invalid user_id", domain.ErrInvalidInput)
	}
	role, ok := domain.ParseRole(data.Role)
	if !ok {
		return fmt.Errorf("%w: user event has unknown role %q", domain.ErrInvalidInput, data.Role)
	}
	err = s.credentials.MirrorIdentity(ctx, ports.MirrorIdentityParams{
		UserID:       userID,
		Email:        data.Email,
		FirstName:    data.FirstName,
		LastName:     data.LastName,
		Role:         role,
		UpdatedAtUTC: now,
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("mirror identity %s: %w", userID, err)
	}
	return nil
}
