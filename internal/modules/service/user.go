package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"github.com/ucu-innovators/hub/internal/modules/policy"
	"github.com/ucu-innovators/hub/internal/modules/repo"
	"github.com/ucu-innovators/hub/internal/pkg/utils/tokens"
	"go.uber.org/zap"
)

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthOutput, error)
	Login(ctx context.Context, in LoginInput) (*AuthOutput, error)
	Me(ctx context.Context, p *policy.Principal) (*model.User, error)
	GetProfile(ctx context.Context, p *policy.Principal, id uuid.UUID) (*ProfileOutput, error)
	UpdateProfile(ctx context.Context, p *policy.Principal, id uuid.UUID, in UpdateProfileInput) (*model.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	// CreateUser provisions an account of any role, including admin. It is not reachable over HTTP.
	CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error)
	SetPassword(ctx context.Context, email, password string) error
}

// TokenIssuer mints session tokens. *authn.Issuer implements it.
type TokenIssuer interface {
	Issue(u *model.User) (string, time.Time, error)
}

type UserServiceDeps struct {
	Users    repo.UserRepo
	Projects repo.ProjectRepo
	Resets   repo.ResetTokenRepo
	Gate     *policy.Gate
	Hasher   PasswordHasher
	Issuer   TokenIssuer
	// Notifier may be nil, in which case reset tokens are only logged at debug level.
	Notifier       ResetNotifier
	Pepper         string
	ResetTTL       time.Duration
	ResetURLPrefix string
	Log            *zap.Logger
	Now            func() time.Time
}

type userService struct {
	d UserServiceDeps
	// dummyHash is compared against when the email is unknown so both failure paths cost the same.
	dummyHash string
}

func NewUserService(d UserServiceDeps) UserService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.ResetTTL <= 0 {
		d.ResetTTL = time.Hour
	}
	s := &userService{d: d}
	if h, err := d.Hasher.Hash(strings.Repeat("not-a-real-password", 4)); err == nil {
		s.dummyHash = h
	}
	return s
}

type RegisterInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	Faculty    string `json:"faculty"`
	Department string `json:"department"`
	StudentID  string `json:"student_id"`
}

type CreateUserInput = RegisterInput

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthOutput struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type ProfileOutput struct {
	User     *model.User     `json:"user"`
	Projects []model.Project `json:"projects"`
}

type UpdateProfileInput struct {
	FullName   *string `json:"full_name"`
	Faculty    *string `json:"faculty"`
	Department *string `json:"department"`
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*AuthOutput, error) {
	role := model.Role(strings.ToLower(strings.TrimSpace(in.Role)))
	if role != model.RoleStudent && role != model.RoleSupervisor {
		return nil, validationErr("role must be student or supervisor")
	}
	in.Role = string(role)
	u, err := s.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *userService) CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error) {
	role, err := model.ParseRole(strings.ToLower(strings.TrimSpace(in.Role)))
	if err != nil {
		return nil, validationErr("%v", err)
	}
	email := normalizeEmail(in.Email)
	if err := newValidator().Var(email, "required,email,max=254"); err != nil {
		return nil, validationErr("email must be a valid email address")
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, validationErr("full_name is required")
	}
	if err := s.checkPassword(in.Password); err != nil {
		return nil, err
	}

	u := &model.User{
		Email:      email,
		FullName:   fullName,
		Role:       role,
		Faculty:    strings.TrimSpace(in.Faculty),
		Department: strings.TrimSpace(in.Department),
	}
	if role == model.RoleStudent {
		sid := strings.TrimSpace(in.StudentID)
		if sid == "" {
			return nil, validationErr("student_id is required for students")
		}
		u.StudentID = &sid
	}

	exists, err := s.d.Users.EmailExists(ctx, email)
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	if exists {
		return nil, fmt.Errorf("%w: email is already registered", ErrConflict)
	}

	hash, err := s.d.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	if err := s.d.Users.Create(ctx, u); err != nil {
		// a concurrent registration can still win the unique index
		return nil, fromRepo(err, "email")
	}
	s.d.Log.Info("user registered", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *userService) Login(ctx context.Context, in LoginInput) (*AuthOutput, error) {
	badCreds := fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)

	u, err := s.d.Users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if !errors.Is(fromRepo(err, "user"), ErrNotFound) {
			return nil, fromRepo(err, "user")
		}
		if s.dummyHash != "" {
			_, _ = s.d.Hasher.Verify(in.Password, s.dummyHash)
		}
		return nil, badCreds
	}
	ok, err := s.d.Hasher.Verify(in.Password, u.PasswordHash)
	if err != nil || !ok {
		return nil, badCreds
	}
	return s.issue(u)
}

func (s *userService) issue(u *model.User) (*AuthOutput, error) {
	tok, exp, err := s.d.Issuer.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthOutput{Token: tok, ExpiresAt: exp, User: u}, nil
}

func (s *userService) Me(ctx context.Context, p *policy.Principal) (*model.User, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthenticated
	}
	u, err := s.d.Users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	return u, nil
}

// GetProfile returns the user with their projects, newest first. The email is
// only shown to the user themselves and to admins.
func (s *userService) GetProfile(ctx context.Context, p *policy.Principal, id uuid.UUID) (*ProfileOutput, error) {
	if err := fromPolicy(s.d.Gate.Authorize(ctx, p, policy.ActionViewProfile, id)); err != nil {
		return nil, err
	}
	u, err := s.d.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	if p.ID != u.ID && p.Role != model.RoleAdmin {
		u.Email = ""
	}
	projects, err := s.d.Projects.List(ctx, repo.ProjectFilter{SubmitterID: u.ID}, time.Time{}, uuid.Nil, 0)
	if err != nil {
		return nil, fromRepo(err, "projects")
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return &ProfileOutput{User: u, Projects: projects}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, p *policy.Principal, id uuid.UUID, in UpdateProfileInput) (*model.User, error) {
	if err := fromPolicy(s.d.Gate.Authorize(ctx, p, policy.ActionEditProfile, id)); err != nil {
		return nil, err
	}
	in.FullName = trimPtr(in.FullName)
	in.Faculty = trimPtr(in.Faculty)
	in.Department = trimPtr(in.Department)
	if in.FullName != nil && *in.FullName == "" {
		return nil, validationErr("full_name must not be empty")
	}
	err := s.d.Users.UpdateProfile(ctx, id, repo.ProfileUpdate{
		FullName:   in.FullName,
		Faculty:    in.Faculty,
		Department: in.Department,
	})
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	u, err := s.d.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	return u, nil
}

// ForgotPassword never reveals whether the email is registered.
func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.d.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(fromRepo(err, "user"), ErrNotFound) {
			return nil
		}
		return fromRepo(err, "user")
	}

	raw, err := tokens.NewToken(tokens.ResetPrefix)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	secret, _ := tokens.ParseToken(raw, tokens.ResetPrefix)
	expires := s.d.Now().UTC().Add(s.d.ResetTTL)
	rec := &model.PasswordResetToken{
		UserID:    u.ID,
		TokenHMAC: tokens.HMAC256Hex(s.d.Pepper, secret),
		ExpiresAt: expires,
	}
	if err := s.d.Resets.Create(ctx, rec); err != nil {
		return fromRepo(err, "reset token")
	}

	msg := PasswordResetMessage{
		Email:     u.Email,
		FullName:  u.FullName,
		Token:     raw,
		ResetURL:  s.d.ResetURLPrefix + raw,
		ExpiresAt: expires,
	}
	if s.d.Notifier == nil {
		s.d.Log.Debug("password reset issued without a delivery channel", zap.String("user_id", u.ID.String()))
		return nil
	}
	if err := s.d.Notifier.SendPasswordReset(ctx, msg); err != nil {
		s.d.Log.Warn("deliver password reset", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, token, password string) error {
	invalid := validationErr("reset token is invalid or expired")

	secret, ok := tokens.ParseToken(strings.TrimSpace(token), tokens.ResetPrefix)
	if !ok || secret == "" {
		return invalid
	}
	if err := s.checkPassword(password); err != nil {
		return err
	}

	rec, err := s.d.Resets.GetByHMAC(ctx, tokens.HMAC256Hex(s.d.Pepper, secret))
	if err != nil {
		if errors.Is(fromRepo(err, "reset token"), ErrNotFound) {
			return invalid
		}
		return fromRepo(err, "reset token")
	}
	now := s.d.Now().UTC()
	if !rec.Usable(now) {
		return invalid
	}

	hash, err := s.d.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	consumed, err := s.d.Resets.Consume(ctx, rec.ID, rec.UserID, hash, now)
	if err != nil {
		return fromRepo(err, "reset token")
	}
	if !consumed {
		// used concurrently
		return invalid
	}
	s.d.Log.Info("password reset", zap.String("user_id", rec.UserID.String()))
	return nil
}

func (s *userService) checkPassword(password string) error {
	if err := s.d.Hasher.CheckLength(password); err != nil {
		return validationErr("%v", err)
	}
	return nil
}

func (s *userService) SetPassword(ctx context.Context, email, password string) error {
	if err := s.checkPassword(password); err != nil {
		return err
	}
	u, err := s.d.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fromRepo(err, "user")
	}
	hash, err := s.d.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return fromRepo(s.d.Users.UpdatePassword(ctx, u.ID, hash), "user")
}
