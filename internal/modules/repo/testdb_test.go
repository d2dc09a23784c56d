package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/ucu-innovators/hub/internal/config"
	hubdb "github.com/ucu-innovators/hub/internal/infra/db"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"gorm.io/gorm"
)

// setupTestDB opens a private in-memory sqlite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{Database: config.DBCfg{
		Driver:  "sqlite",
		DSN:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpen: 1,
		MaxIdle: 1,
	}}
	db, err := hubdb.New(cfg)
	require.NoError(t, err)
	require.NoError(t, hubdb.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

var baseTime = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, db *gorm.DB, role model.Role, name string, createdAt time.Time) *model.User {
	t.Helper()
	u := &model.User{
		Email:        uuid.NewString() + "@ucu.ac.ug",
		PasswordHash: "x",
		FullName:     name,
		Role:         role,
		Faculty:      "Engineering",
		CreatedAt:    createdAt,
	}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), u))
	return u
}

type projectFixture struct {
	title        string
	description  string
	category     string
	technologies []string
	faculty      string
	year         int
	status       model.ProjectStatus
	createdAt    time.Time
}

func seedProject(t *testing.T, db *gorm.DB, owner *model.User, f projectFixture) *model.Project {
	t.Helper()
	p := &model.Project{
		Title:        f.title,
		Description:  f.description,
		Category:     f.category,
		Technologies: f.technologies,
		Faculty:      f.faculty,
		Year:         f.year,
		Status:       model.StatusPending,
		SubmitterID:  owner.ID,
		CreatedAt:    f.createdAt,
	}
	if p.Description == "" {
		p.Description = "description of " + f.title
	}
	if p.Year == 0 {
		p.Year = 2025
	}
	if len(p.Technologies) == 0 {
		p.Technologies = []string{"Go"}
	}
	r := NewProjectRepo(db)
	require.NoError(t, r.Create(context.Background(), p))

	if f.status != "" && f.status != model.StatusPending {
		ok, err := r.Review(context.Background(), p.ID, ReviewUpdate{
			Decision:   f.status,
			ReviewerID: uuid.New(),
			Comments:   "reviewed",
			At:         f.createdAt.Add(time.Hour),
		})
		require.NoError(t, err)
		require.True(t, ok)
		p.Status = f.status
	}
	return p
}
