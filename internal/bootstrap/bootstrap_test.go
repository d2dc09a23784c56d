package bootstrap

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucu-innovators/hub/internal/config"
	"github.com/ucu-innovators/hub/internal/infra/db"
	"github.com/ucu-innovators/hub/internal/infra/httpclient"
	"github.com/ucu-innovators/hub/internal/infra/llm"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"github.com/ucu-innovators/hub/internal/modules/policy"
	"github.com/ucu-innovators/hub/internal/modules/repo"
	"github.com/ucu-innovators/hub/internal/modules/service"
	"github.com/ucu-innovators/hub/internal/pkg/authn"
	"go.uber.org/zap"
)

type adminEnv struct {
	cfg   *config.Config
	users repo.UserRepo
	svc   service.UserService
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	cfg := &config.Config{
		Database: config.DBCfg{
			Driver:  "sqlite",
			DSN:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
			MaxOpen: 1,
			MaxIdle: 1,
		},
		Auth: config.AuthCfg{
			AdminEmail:    "admin@ucu.edu.ua",
			AdminPassword: "first-secret",
			AdminName:     "Administrator",
		},
	}
	gdb, err := db.New(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	users := repo.NewUserRepo(gdb)
	svc := service.NewUserService(service.UserServiceDeps{
		Users:    users,
		Projects: repo.NewProjectRepo(gdb),
		Resets:   repo.NewResetTokenRepo(gdb),
		Gate:     policy.NewGate(),
		Hasher:   service.NewArgonHasher("", 0),
		Issuer:   authn.NewIssuer("bootstrap-test", time.Hour),
	})
	return &adminEnv{cfg: cfg, users: users, svc: svc}
}

func (e *adminEnv) login(password string) error {
	_, err := e.svc.Login(context.Background(), service.LoginInput{Email: e.cfg.Auth.AdminEmail, Password: password})
	return err
}

func TestEnsureAdminExists(t *testing.T) {
	ctx := context.Background()

	t.Run("creates admin when missing", func(t *testing.T) {
		e := newAdminEnv(t)
		require.NoError(t, EnsureAdminExists(ctx, e.users, e.svc, e.cfg, zap.NewNop()))

		u, err := e.users.GetByEmail(ctx, "admin@ucu.edu.ua")
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, u.Role)
		assert.Equal(t, "Administrator", u.FullName)
		assert.NoError(t, e.login("first-secret"))
	})

	t.Run("aligns password of existing admin", func(t *testing.T) {
		e := newAdminEnv(t)
		require.NoError(t, EnsureAdminExists(ctx, e.users, e.svc, e.cfg, zap.NewNop()))

		e.cfg.Auth.AdminPassword = "rotated-secret"
		require.NoError(t, EnsureAdminExists(ctx, e.users, e.svc, e.cfg, zap.NewNop()))
		assert.NoError(t, e.login("rotated-secret"))
		assert.ErrorIs(t, e.login("first-secret"), service.ErrUnauthenticated)
	})

	t.Run("leaves non-admin account alone", func(t *testing.T) {
		e := newAdminEnv(t)
		_, err := e.svc.CreateUser(ctx, service.CreateUserInput{
			Email:     "admin@ucu.edu.ua",
			Password:  "student-pass",
			FullName:  "Not An Admin",
			Role:      string(model.RoleStudent),
			StudentID: "S-1",
		})
		require.NoError(t, err)

		require.NoError(t, EnsureAdminExists(ctx, e.users, e.svc, e.cfg, zap.NewNop()))
		u, err := e.users.GetByEmail(ctx, "admin@ucu.edu.ua")
		require.NoError(t, err)
		assert.Equal(t, model.RoleStudent, u.Role)
		assert.NoError(t, e.login("student-pass"))
	})

	t.Run("no-op without credentials", func(t *testing.T) {
		e := newAdminEnv(t)
		e.cfg.Auth.AdminPassword = ""
		require.NoError(t, EnsureAdminExists(ctx, e.users, e.svc, e.cfg, zap.NewNop()))

		exists, err := e.users.EmailExists(ctx, "admin@ucu.edu.ua")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestNewAssistantBackend(t *testing.T) {
	tests := []struct {
		provider string
		want     any
	}{
		{"http", &httpclient.AssistantClient{}},
		{"openai", &llm.OpenAIAssistant{}},
		{"anthropic", &llm.AnthropicAssistant{}},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := &config.Config{Assistant: config.AssistantCfg{
				Provider:  tt.provider,
				BaseURL:   "http://127.0.0.1:1",
				APIKey:    "test-key",
				Model:     "test-model",
				MaxTokens: 64,
				Timeout:   time.Second,
			}}
			got := NewAssistantBackend(cfg, zap.NewNop())
			require.NotNil(t, got)
			assert.IsType(t, tt.want, got)
		})
	}

	t.Run("none", func(t *testing.T) {
		cfg := &config.Config{Assistant: config.AssistantCfg{Provider: "none"}}
		assert.Nil(t, NewAssistantBackend(cfg, zap.NewNop()))
	})
}
