package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"gorm.io/gorm"
)

type ResetTokenRepo interface {
	Create(ctx context.Context, t *model.PasswordResetToken) error
	GetByHMAC(ctx context.Context, tokenHMAC string) (*model.PasswordResetToken, error)
	// Consume marks the token used and sets the user's password hash atomically.
	// It reports false when the token was already used or has expired.
	Consume(ctx context.Context, tokenID, userID uuid.UUID, passwordHash string, now time.Time) (bool, error)
}

type resetTokenRepo struct{ db *gorm.DB }

func NewResetTokenRepo(db *gorm.DB) ResetTokenRepo {
	return &resetTokenRepo{db: db}
}

func (r *resetTokenRepo) Create(ctx context.Context, t *model.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *resetTokenRepo) GetByHMAC(ctx context.Context, tokenHMAC string) (*model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	if err := r.db.WithContext(ctx).Where("token_hmac = ?", tokenHMAC).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *resetTokenRepo) Consume(ctx context.Context, tokenID, userID uuid.UUID, passwordHash string, now time.Time) (bool, error) {
	consumed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.PasswordResetToken{}).
			Where("id = ? AND used_at IS NULL AND expires_at > ?", tokenID, now).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		res = tx.Model(&model.User{}).Where("id = ?", userID).
			Updates(map[string]interface{}{"password_hash": passwordHash, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return gorm.ErrRecordNotFound
		}
		consumed = true
		return nil
	})
	return consumed, err
}
