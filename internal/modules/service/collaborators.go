package service

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/ucu-innovators/hub/internal/infra/blob"
	"github.com/ucu-innovators/hub/internal/pkg/utils/secrets"
)

// EventPublisher delivers JSON messages to an exchange. *mq.Publisher implements it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, body any) error
}

// Invalidator is told whenever project data changes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// DocumentStore keeps uploaded project documents. *blob.S3Deps implements it.
type DocumentStore interface {
	UploadFormFile(ctx context.Context, prefix string, fh *multipart.FileHeader) (*blob.UploadedMeta, error)
	PresignGet(ctx context.Context, key string, expire time.Duration) (string, error)
}

// PasswordHasher is the credential verification collaborator. It owns the
// password length policy as well as the hash format.
type PasswordHasher interface {
	CheckLength(password string) error
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// NewArgonHasher hashes with argon2id, mixing in a server-side pepper.
// minLength falls back to secrets.DefaultMinLength when not positive.
func NewArgonHasher(pepper string, minLength int) PasswordHasher {
	return secrets.NewPasswords(pepper, minLength)
}

// ResetNotifier hands a reset link to whatever delivers it. Delivery is fire-and-forget.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, msg PasswordResetMessage) error
}

type PasswordResetMessage struct {
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Token     string    `json:"token"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type queueResetNotifier struct {
	pub        EventPublisher
	exchange   string
	routingKey string
}

// NewQueueResetNotifier publishes reset messages for an out-of-process mailer.
func NewQueueResetNotifier(pub EventPublisher, exchange, routingKey string) ResetNotifier {
	return &queueResetNotifier{pub: pub, exchange: exchange, routingKey: routingKey}
}

func (n *queueResetNotifier) SendPasswordReset(ctx context.Context, msg PasswordResetMessage) error {
	return n.pub.PublishJSON(ctx, n.exchange, n.routingKey, msg)
}
