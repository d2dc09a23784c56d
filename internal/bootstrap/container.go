package bootstrap

import (
	"context"
	"time"

	"github.com/ucu-innovators/hub/internal/config"
	"github.com/ucu-innovators/hub/internal/infra/blob"
	"github.com/ucu-innovators/hub/internal/infra/cache"
	"github.com/ucu-innovators/hub/internal/infra/db"
	"github.com/ucu-innovators/hub/internal/infra/logger"
	mq "github.com/ucu-innovators/hub/internal/infra/queue"
	"github.com/ucu-innovators/hub/internal/modules/analytics"
	"github.com/ucu-innovators/hub/internal/modules/handler"
	"github.com/ucu-innovators/hub/internal/modules/policy"
	"github.com/ucu-innovators/hub/internal/modules/repo"
	"github.com/ucu-innovators/hub/internal/modules/service"
	"github.com/ucu-innovators/hub/internal/pkg/authn"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BuildContainer registers every provider. Redis, RabbitMQ and S3 are optional:
// when disabled in config their providers yield nil and dependents degrade.
func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.IsDevelopment() {
			return logger.NewDevelopment(cfg.Log.Level)
		}
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Telemetry.Enabled {
			if err := db.RegisterOpenTelemetryPlugin(d); err != nil {
				return nil, err
			}
		}
		// [optional] auto migrate
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(d); err != nil {
				return nil, err
			}
		}
		return d, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.Redis.Enabled {
			return nil, nil
		}
		rdb, err := cache.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Telemetry.Enabled {
			if err := cache.RegisterOpenTelemetryPlugin(rdb); err != nil {
				return nil, err
			}
		}
		return rdb, nil
	})
	do.Provide(inj, func(i *do.Injector) (*cache.VersionedCache, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.NewVersionedCache(do.MustInvoke[*redis.Client](i), "hub:analytics", cfg.Analytics.CacheTTL), nil
	})

	// RabbitMQ DialFunc for connection and reconnection
	do.Provide(inj, func(i *do.Injector) (mq.DialFunc, error) {
		return mq.NewDialFunc(do.MustInvoke[*config.Config](i)), nil
	})

	// RabbitMQ Connection
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.RabbitMQ.Enabled {
			return nil, nil
		}
		return do.MustInvoke[mq.DialFunc](i)()
	})

	// RabbitMQ Publisher
	do.Provide(inj, func(i *do.Injector) (*mq.Publisher, error) {
		conn := do.MustInvoke[*amqp.Connection](i)
		if conn == nil {
			return nil, nil
		}
		return mq.NewPublisher(
			conn,
			do.MustInvoke[*zap.Logger](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[mq.DialFunc](i),
		)
	})

	// S3
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.S3.Enabled {
			return nil, nil
		}
		return blob.NewS3(context.Background(), cfg)
	})

	// Auth
	do.Provide(inj, func(i *do.Injector) (*authn.Issuer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return authn.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), nil
	})
	do.Provide(inj, func(i *do.Injector) (*policy.Gate, error) {
		return policy.NewGate(), nil
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.UserRepo, error) {
		return repo.NewUserRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ProjectRepo, error) {
		return repo.NewProjectRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ResetTokenRepo, error) {
		return repo.NewResetTokenRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.ProjectService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		d := service.ProjectServiceDeps{
			Projects:      do.MustInvoke[repo.ProjectRepo](i),
			Users:         do.MustInvoke[repo.UserRepo](i),
			Gate:          do.MustInvoke[*policy.Gate](i),
			PresignExpire: presignExpire(cfg),
			Exchange:      cfg.RabbitMQ.ExchangeName.Project,
			RoutingKeys: map[string]string{
				service.EventProjectSubmitted: cfg.RabbitMQ.RoutingKey.ProjectSubmitted,
				service.EventProjectReviewed:  cfg.RabbitMQ.RoutingKey.ProjectReviewed,
				service.EventCommentPosted:    cfg.RabbitMQ.RoutingKey.CommentPosted,
			},
			Invalidator: do.MustInvoke[*cache.VersionedCache](i),
			Log:         do.MustInvoke[*zap.Logger](i),
		}
		// assign only non-nil pointers so the interfaces stay nil when disabled
		if s3 := do.MustInvoke[*blob.S3Deps](i); s3 != nil {
			d.Docs = s3
		}
		if pub := do.MustInvoke[*mq.Publisher](i); pub != nil {
			d.Publisher = pub
		}
		return service.NewProjectService(d), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.UserService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		d := service.UserServiceDeps{
			Users:          do.MustInvoke[repo.UserRepo](i),
			Projects:       do.MustInvoke[repo.ProjectRepo](i),
			Resets:         do.MustInvoke[repo.ResetTokenRepo](i),
			Gate:           do.MustInvoke[*policy.Gate](i),
			Hasher:         service.NewArgonHasher(cfg.Auth.SecretPepper, cfg.Auth.MinPasswordSize),
			Issuer:         do.MustInvoke[*authn.Issuer](i),
			Pepper:         cfg.Auth.SecretPepper,
			ResetTTL:       cfg.Auth.ResetTokenTTL,
			ResetURLPrefix: cfg.Auth.ResetURLPrefix,
			Log:            do.MustInvoke[*zap.Logger](i),
		}
		if pub := do.MustInvoke[*mq.Publisher](i); pub != nil {
			d.Notifier = service.NewQueueResetNotifier(pub, cfg.RabbitMQ.ExchangeName.Notification, cfg.RabbitMQ.RoutingKey.PasswordReset)
		}
		return service.NewUserService(d), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.AnalyticsService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return service.NewAnalyticsService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[*policy.Gate](i),
			do.MustInvoke[*cache.VersionedCache](i),
			analytics.Options{TopN: cfg.Analytics.TopN, RecentN: cfg.Analytics.RecentN},
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.AssistantService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		return service.NewAssistantService(NewAssistantBackend(cfg, log), do.MustInvoke[*policy.Gate](i), log), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.ProjectHandler, error) {
		return handler.NewProjectHandler(do.MustInvoke[service.ProjectService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.UserHandler, error) {
		return handler.NewUserHandler(do.MustInvoke[service.UserService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.AnalyticsHandler, error) {
		return handler.NewAnalyticsHandler(do.MustInvoke[service.AnalyticsService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.AssistantHandler, error) {
		return handler.NewAssistantHandler(do.MustInvoke[service.AssistantService](i)), nil
	})
	return inj
}

func presignExpire(cfg *config.Config) time.Duration {
	if cfg.S3.PresignExpireSec <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(cfg.S3.PresignExpireSec) * time.Second
}
