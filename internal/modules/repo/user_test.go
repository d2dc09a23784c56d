package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"gorm.io/gorm"
)

func TestUserRepo(t *testing.T) {
	db := setupTestDB(t)
	r := NewUserRepo(db)
	ctx := context.Background()

	u := seedUser(t, db, model.RoleStudent, "Amina", baseTime)

	t.Run("get by id and email", func(t *testing.T) {
		got, err := r.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, got.Email)

		got, err = r.GetByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = r.GetByEmail(ctx, "nobody@ucu.ac.ug")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("email uniqueness", func(t *testing.T) {
		exists, err := r.EmailExists(ctx, u.Email)
		require.NoError(t, err)
		assert.True(t, exists)

		dup := &model.User{Email: u.Email, PasswordHash: "x", FullName: "Dup", Role: model.RoleStudent}
		assert.Error(t, r.Create(ctx, dup))
	})

	t.Run("update profile touches only given fields", func(t *testing.T) {
		name := "Amina N."
		require.NoError(t, r.UpdateProfile(ctx, u.ID, ProfileUpdate{FullName: &name}))

		got, err := r.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Amina N.", got.FullName)
		assert.Equal(t, "Engineering", got.Faculty)
		assert.Equal(t, model.RoleStudent, got.Role)

		assert.NoError(t, r.UpdateProfile(ctx, u.ID, ProfileUpdate{}))
		assert.ErrorIs(t, r.UpdateProfile(ctx, uuid.New(), ProfileUpdate{FullName: &name}), gorm.ErrRecordNotFound)
	})

	t.Run("update password", func(t *testing.T) {
		require.NoError(t, r.UpdatePassword(ctx, u.ID, "new-hash"))
		got, err := r.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)
		assert.ErrorIs(t, r.UpdatePassword(ctx, uuid.New(), "h"), gorm.ErrRecordNotFound)
	})
}
