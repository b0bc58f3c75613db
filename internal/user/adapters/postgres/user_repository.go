package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leocisternasa/mediprotek-test/internal/user/domain"
	"github.com/leocisternasa/mediprotek-test/internal/user/ports"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) CreateWithOutboxTx(ctx context.Context, params ports.CreateUserTxParams, outboxEvent ports.OutboxEvent) (domain.User, error) {
	var result domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := userModel{
			Email:     params.Email,
			FirstName: params.FirstName,
			LastName:  params.LastName,
			Role:      string(params.Role),
			BirthDate: params.BirthDate,
			Phone:     params.Phone,
			CreatedAt: params.CreatedAtUTC,
			UpdatedAt: params.CreatedAtUTC,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}

		outbox := newOutboxRow(outboxEvent, injectEventData(outboxEvent.Payload, map[string]any{
			"user_id": rec.UserID.String(),
		}), rec.UserID.String())
		if err := tx.Create(&outbox).Error; err != nil {
			return err
		}

		result = toDomainUser(rec)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) List(ctx context.Context, params ports.ListUsersParams) ([]domain.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&userModel{})
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []userModel
	if err := query.
		Order("created_at ASC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, toDomainUser(row))
	}
	return users, total, nil
}

func (r *userRepository) UpdateWithOutboxTx(ctx context.Context, params ports.UpdateUserTxParams, outboxEvent ports.OutboxEvent) (domain.User, error) {
	var result domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"updated_at": params.UpdatedAtUTC}
		if params.Email != nil {
			updates["email"] = *params.Email
		}
		if params.FirstName != nil {
			updates["first_name"] = *params.FirstName
		}
		if params.LastName != nil {
			updates["last_name"] = *params.LastName
		}
		if params.Role != nil {
			updates["role"] = string(*params.Role)
		}
		if params.BirthDate != nil {
			updates["birth_date"] = *params.BirthDate
		}
		if params.Phone != nil {
			updates["phone"] = *params.Phone
		}

		res := tx.Model(&userModel{}).Where("user_id = ?", params.UserID).Updates(updates)
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return domain.ErrConflict
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		var rec userModel
		if err := tx.Where("user_id = ?", params.UserID).Take(&rec).Error; err != nil {
			return err
		}

		outbox := newOutboxRow(outboxEvent, injectEventData(outboxEvent.Payload, map[string]any{
			"user_id":    rec.UserID.String(),
			"email":      rec.Email,
			"first_name": rec.FirstName,
			"last_name":  rec.LastName,
			"role":       rec.Role,
		}), rec.UserID.String())
		if err := tx.Create(&outbox).Error; err != nil {
			return err
		}

		result = toDomainUser(rec)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *userRepository) DeleteWithOutboxTx(ctx context.Context, userID uuid.UUID, outboxEvent ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ?", userID).Delete(&userModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		outbox := newOutboxRow(outboxEvent, outboxEvent.Payload, userID.String())
		return tx.Create(&outbox).Error
	})
}

// BulkDeleteWithOutboxTx removes every listed row and writes one deletion
// event per removed row inside a single transaction, so the batch and its
// notifications are observable together or not at all.
func (r *userRepository) BulkDeleteWithOutboxTx(ctx context.Context, userIDs []uuid.UUID, makeEvent func(domain.User) ports.OutboxEvent) (ports.BulkDeleteResult, error) {
	var result ports.BulkDeleteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []userModel
		if err := tx.Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
			return err
		}

		found := make(map[uuid.UUID]bool, len(rows))
		for _, row := range rows {
			found[row.UserID] = true
		}
		for _, id := range userIDs {
			if !found[id] {
				result.Missing = append(result.Missing, id)
			}
		}

		for _, row := range rows {
			if err := tx.Where("user_id = ?", row.UserID).Delete(&userModel{}).Error; err != nil {
				return err
			}
			event := makeEvent(toDomainUser(row))
			outbox := newOutboxRow(event, event.Payload, row.UserID.String())
			if err := tx.Create(&outbox).Error; err != nil {
				return err
			}
			result.Deleted = append(result.Deleted, row.UserID)
		}
		return nil
	})
	if err != nil {
		return ports.BulkDeleteResult{}, err
	}
	return result, nil
}

func newOutboxRow(event ports.OutboxEvent, payload []byte, partitionKey string) userOutboxModel {
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	return userOutboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: partitionKey,
		Payload:      string(payload),
		CreatedAt:    event.OccurredAt,
	}
}

// injectEventData merges authoritative row values into the envelope's data
// object after the write has happened inside the same transaction.
func injectEventData(payload []byte, fields map[string]any) []byte {
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return payload
	}
	data, _ := obj["data"].(map[string]any)
	if data == nil {
		data = map[string]any{}
	}
	for k, v := range fields {
		data[k] = v
	}
	obj["data"] = data
	if id, ok := fields["user_id"].(string); ok {
		obj["partition_key"] = id
	}
	adjusted, err := json.Marshal(obj)
	if err != nil {
		return payload
	}
	return adjusted
}
