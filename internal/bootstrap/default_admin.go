package bootstrap

import (
	"context"
	"errors"

	"github.com/ucu-innovators/hub/internal/config"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"github.com/ucu-innovators/hub/internal/modules/repo"
	"github.com/ucu-innovators/hub/internal/modules/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnsureAdminExists creates the configured admin on startup, or aligns its
// password when the account is already there. Admins cannot self-register.
func EnsureAdminExists(ctx context.Context, users repo.UserRepo, svc service.UserService, cfg *config.Config, log *zap.Logger) error {
	email := cfg.Auth.AdminEmail
	password := cfg.Auth.AdminPassword
	if email == "" || password == "" {
		return nil
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != model.RoleAdmin {
			log.Sugar().Warnw("configured admin email belongs to a non-admin account", "user", existing.ID, "role", existing.Role)
			return nil
		}
		if err := svc.SetPassword(ctx, email, password); err != nil {
			return err
		}
		log.Sugar().Infow("default admin exists", "user", existing.ID)
		return nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		u, err := svc.CreateUser(ctx, service.CreateUserInput{
			Email:    email,
			Password: password,
			FullName: cfg.Auth.AdminName,
			Role:     string(model.RoleAdmin),
		})
		if err != nil {
			return err
		}
		log.Sugar().Infow("default admin created", "user", u.ID)
		return nil

	default:
		return err
	}
}
