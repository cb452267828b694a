// Package service реализует бизнес-логику сервиса gophershop: учётные записи, документы пользователей и заказы.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/gophershop/internal/model"
	"github.com/mmeshcher/gophershop/internal/repository"
	"github.com/mmeshcher/gophershop/internal/validation"
)

// Ошибки сервиса. Текст ошибки совпадает с кодом, который видит клиент.
var (
	ErrInvalidEmail      = errors.New("invalid-email")
	ErrWeakPassword      = errors.New("weak-password")
	ErrEmailInUse        = errors.New("email-already-in-use")
	ErrInvalidCredential = errors.New("invalid-credential")
	ErrUserNotFound      = errors.New("user-not-found")
	ErrInvalidAdminCode  = errors.New("invalid-admin-code")
	ErrInvalidActionCode = errors.New("invalid-action-code")
	ErrPermissionDenied  = errors.New("permission-denied")
	ErrInvalidArgument   = errors.New("invalid-argument")
)

const (
	resetTokenTTL      = time.Hour
	resetPurgeInterval = time.Minute
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, email, displayName string, passwordHash []byte, isAdmin bool) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id string, passwordHash []byte) error
	DeleteUser(ctx context.Context, id string) error
	IsAdmin(ctx context.Context, id string) (bool, error)

	GetUserData(ctx context.Context, userID string) (model.Record, error)
	PutUserData(ctx context.Context, userID string, data model.Record) error
	CreateOrder(ctx context.Context, userID string, status model.OrderStatus, items []model.Record) (*model.OrderRecord, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]model.OrderRecord, error)

	CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error
	ConsumePasswordReset(ctx context.Context, token string, now time.Time) (string, error)
	PurgeExpiredResets(ctx context.Context, now time.Time) (int64, error)
}

// Service содержит бизнес-логику сервиса gophershop.
type Service struct {
	repo      Repository
	adminCode string
	logger    *zap.Logger
	now       func() time.Time
}

// NewService создаёт сервис. Пустой adminCode отключает регистрацию администраторов.
func NewService(repo Repository, adminCode string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		adminCode: adminCode,
		logger:    logger,
		now:       time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*model.User, error) {
	return s.register(ctx, email, password, "", false)
}

// RegisterAdmin регистрирует администратора, если код совпадает с настроенным.
func (s *Service) RegisterAdmin(ctx context.Context, email, password, displayName, adminCode string) (*model.User, error) {
	if !validation.IsAdminCode(s.adminCode, adminCode) {
		return nil, ErrInvalidAdminCode
	}
	return s.register(ctx, email, password, displayName, true)
}

func (s *Service) register(ctx context.Context, email, password, displayName string, isAdmin bool) (*model.User, error) {
	email, ok := validation.NormalizeEmail(email)
	if !ok {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidPassword(password) {
		return nil, ErrWeakPassword
	}
	if !validation.IsValidDisplayName(displayName) {
		return nil, ErrInvalidArgument
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.CreateUser(ctx, email, displayName, hash, isAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.String("uid", u.ID), zap.Bool("admin", isAdmin))
	return u, nil
}

// AuthenticateUser проверяет email и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	email, ok := validation.NormalizeEmail(email)
	if !ok {
		return nil, ErrInvalidEmail
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return nil, ErrInvalidCredential
	}

	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, uid string) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Reauthenticate проверяет, что учётные данные принадлежат вошедшему пользователю.
func (s *Service) Reauthenticate(ctx context.Context, uid, email, password string) error {
	u, err := s.AuthenticateUser(ctx, email, password)
	if err != nil {
		return err
	}
	if u.ID != uid {
		return ErrInvalidCredential
	}
	return nil
}

// ChangePassword меняет пароль пользователя.
func (s *Service) ChangePassword(ctx context.Context, uid, newPassword string) error {
	if !validation.IsValidPassword(newPassword) {
		return ErrWeakPassword
	}
	return s.setPassword(ctx, uid, newPassword)
}

func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrWeakPassword
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *Service) setPassword(ctx context.Context, uid, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePasswordHash(ctx, uid, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// DeleteAccount удаляет учётную запись вместе с документами и заказами.
func (s *Service) DeleteAccount(ctx context.Context, uid string) error {
	if err := s.repo.DeleteUser(ctx, uid); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("user deleted", zap.String("uid", uid))
	return nil
}

// RequestPasswordReset выпускает одноразовый токен сброса пароля. Доставка токена пользователю сводится к записи в лог.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, ok := validation.NormalizeEmail(email)
	if !ok {
		return ErrInvalidEmail
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	token := uuid.NewString()
	if err := s.repo.CreatePasswordReset(ctx, u.ID, token, s.now().Add(resetTokenTTL)); err != nil {
		return err
	}

	s.logger.Info("password reset issued", zap.String("uid", u.ID), zap.String("token", token))
	return nil
}

// ConfirmPasswordReset устанавливает новый пароль по токену сброса.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if !validation.IsValidPassword(newPassword) {
		return ErrWeakPassword
	}

	uid, err := s.repo.ConsumePasswordReset(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenInvalid) {
			return ErrInvalidActionCode
		}
		return err
	}

	return s.setPassword(ctx, uid, newPassword)
}

// StartResetPurge запускает фоновое удаление просроченных токенов сброса пароля.
func (s *Service) StartResetPurge(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(resetPurgeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.purgeResets(ctx)
			}
		}
	}()
}

func (s *Service) purgeResets(ctx context.Context) {
	n, err := s.repo.PurgeExpiredResets(ctx, s.now())
	if err != nil {
		s.logger.Warn("purge password resets failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Debug("expired password resets purged", zap.Int64("count", n))
	}
}
