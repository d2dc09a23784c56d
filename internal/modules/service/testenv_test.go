package service

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ucu-innovators/hub/internal/config"
	"github.com/ucu-innovators/hub/internal/infra/blob"
	hubdb "github.com/ucu-innovators/hub/internal/infra/db"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"github.com/ucu-innovators/hub/internal/modules/policy"
	"github.com/ucu-innovators/hub/internal/modules/repo"
	"gorm.io/gorm"
)

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

// stepClock advances one minute on every read so creation order is strict.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingPublisher keeps every published message in memory.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

type published struct {
	exchange   string
	routingKey string
	body       any
}

func (p *recordingPublisher) PublishJSON(_ context.Context, exchange, routingKey string, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{exchange: exchange, routingKey: routingKey, body: body})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.routingKey)
	}
	return out
}

type countingInvalidator struct {
	mu sync.Mutex
	n  int
}

func (c *countingInvalidator) Bump(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) UploadFormFile(ctx context.Context, prefix string, fh *multipart.FileHeader) (*blob.UploadedMeta, error) {
	args := m.Called(ctx, prefix, fh)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blob.UploadedMeta), args.Error(1)
}

func (m *MockDocumentStore) PresignGet(ctx context.Context, key string, expire time.Duration) (string, error) {
	args := m.Called(ctx, key, expire)
	return args.String(0), args.Error(1)
}

// env wires real repositories over sqlite with in-memory collaborators.
type env struct {
	db       *gorm.DB
	clock    *stepClock
	pub      *recordingPublisher
	inval    *countingInvalidator
	users    repo.UserRepo
	projects repo.ProjectRepo
	svc      ProjectService
}

func newEnv(t *testing.T, docs DocumentStore) *env {
	t.Helper()
	db := setupTestDB(t)
	e := &env{
		db:       db,
		clock:    newStepClock(),
		pub:      &recordingPublisher{},
		inval:    &countingInvalidator{},
		users:    repo.NewUserRepo(db),
		projects: repo.NewProjectRepo(db),
	}
	d := ProjectServiceDeps{
		Projects:    e.projects,
		Users:       e.users,
		Gate:        policy.NewGate(),
		Publisher:   e.pub,
		Exchange:    "hub.project",
		RoutingKeys: map[string]string{EventProjectSubmitted: "project.submitted"},
		Invalidator: e.inval,
		Now:         e.clock.Now,
	}
	if docs != nil {
		d.Docs = docs
	}
	e.svc = NewProjectService(d)
	return e
}

func (e *env) user(t *testing.T, role model.Role, name string) (*model.User, *policy.Principal) {
	t.Helper()
	u := &model.User{
		Email:        uuid.NewString() + "@ucu.ac.ug",
		PasswordHash: "x",
		FullName:     name,
		Role:         role,
		Faculty:      "Engineering",
		Department:   "Computing",
		CreatedAt:    e.clock.Now(),
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u, &policy.Principal{ID: u.ID, Role: u.Role}
}

func draft(title string) SubmitProjectInput {
	return SubmitProjectInput{
		Title:        title,
		Description:  "A project called " + title,
		Category:     "Web Development",
		Technologies: []string{"React", "Go"},
	}
}

func formFile(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}
