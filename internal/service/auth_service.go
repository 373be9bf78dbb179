package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
	"github.com/SubSh2004/CampusZon-sub000/pkg/auth"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
)

// RegisterInput 注册参数
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Hostel   string
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// AuthService 注册、登录与个人资料
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Me(ctx context.Context, caller Caller) (*model.User, error)
	UpdatePreferences(ctx context.Context, caller Caller, skipUnlockConfirmation bool) (*model.User, error)
}

type authService struct {
	users      repository.UserRepository
	issuer     *auth.Issuer
	adminEmail map[string]struct{}
	bcryptCost int
}

func NewAuthService(users repository.UserRepository, issuer *auth.Issuer, adminEmails []string) AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &authService{users: users, issuer: issuer, adminEmail: admins, bcryptCost: bcrypt.DefaultCost}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	campus := model.CampusOf(email)
	if campus == "" {
		return nil, errcode.New(errcode.KindInvalidArgument, "a campus email address is required")
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, errcode.New(errcode.KindConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	_, admin := s.adminEmail[email]
	u := &model.User{
		ID:       uuid.New().String(),
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: string(hash),
		Phone:    strings.TrimSpace(in.Phone),
		Hostel:   strings.TrimSpace(in.Hostel),
		Campus:   campus,
		IsAdmin:  admin,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errcode.New(errcode.KindConflict, "email already registered")
		}
		return nil, err
	}
	return u, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.New(errcode.KindUnauthorized, "invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, errcode.New(errcode.KindUnauthorized, "invalid email or password")
	}
	token, exp, err := s.issuer.Sign(u.ID, u.Email, u.Campus, u.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *authService) Me(ctx context.Context, caller Caller) (*model.User, error) {
	u, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (s *authService) UpdatePreferences(ctx context.Context, caller Caller, skipUnlockConfirmation bool) (*model.User, error) {
	if err := s.users.UpdatePreferences(ctx, caller.ID, skipUnlockConfirmation); err != nil {
		return nil, notFound(err, "user")
	}
	return s.Me(ctx, caller)
}
