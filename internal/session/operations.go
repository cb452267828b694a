package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/gophershop/internal/model"
)

// SignIn выполняет вход и после успеха заново определяет признак администратора.
func (s *AuthSession) SignIn(ctx context.Context, email, password string) bool {
	return s.run(ctx, "sign-in", func(ctx context.Context) error {
		user, err := s.provider.SignIn(ctx, email, password)
		if err != nil {
			return err
		}
		gen := s.setUser(user, false)
		if user != nil {
			s.resolveAdmin(ctx, gen, user.UID, false)
		}
		return nil
	})
}

// SignUp регистрирует пользователя. Новый пользователь приходит через поток изменений провайдера.
func (s *AuthSession) SignUp(ctx context.Context, email, password string) bool {
	return s.run(ctx, "sign-up", func(ctx context.Context) error {
		_, err := s.provider.SignUp(ctx, email, password)
		return err
	})
}

// SignUpAdmin регистрирует администратора по коду и сразу помечает сессию как административную.
func (s *AuthSession) SignUpAdmin(ctx context.Context, email, password, displayName, adminCode string) bool {
	return s.run(ctx, "sign-up-admin", func(ctx context.Context) error {
		user, err := s.provider.SignUpAdmin(ctx, email, password, displayName, adminCode)
		if err != nil {
			return err
		}
		s.markAdmin(user)
		return nil
	})
}

// SignOut завершает сессию у провайдера.
func (s *AuthSession) SignOut(ctx context.Context) bool {
	return s.run(ctx, "sign-out", s.provider.SignOut)
}

// SendPasswordReset запрашивает сброс пароля для указанного адреса.
func (s *AuthSession) SendPasswordReset(ctx context.Context, email string) bool {
	return s.run(ctx, "password-reset", func(ctx context.Context) error {
		return s.provider.SendPasswordReset(ctx, email)
	})
}

// UpdatePassword меняет пароль текущего пользователя.
func (s *AuthSession) UpdatePassword(ctx context.Context, newPassword string) bool {
	return s.run(ctx, "update-password", func(ctx context.Context) error {
		return s.provider.UpdatePassword(ctx, newPassword)
	})
}

// DeleteAccount удаляет учётную запись текущего пользователя.
func (s *AuthSession) DeleteAccount(ctx context.Context) bool {
	return s.run(ctx, "delete-account", s.provider.DeleteAccount)
}

// Reauthenticate повторно проверяет учётные данные текущего пользователя.
func (s *AuthSession) Reauthenticate(ctx context.Context, email, password string) bool {
	return s.run(ctx, "reauthenticate", func(ctx context.Context) error {
		return s.provider.Reauthenticate(ctx, email, password)
	})
}

// run выполняет операцию по общему шаблону: Loading на время вызова, LastError при неудаче.
// Loading сбрасывается на любом пути выхода.
func (s *AuthSession) run(ctx context.Context, op string, fn func(ctx context.Context) error) bool {
	s.update(func(st *State) bool {
		st.Loading = true
		st.LastError = ""
		return true
	})
	defer s.update(func(st *State) bool {
		st.Loading = false
		return true
	})

	if err := fn(ctx); err != nil {
		s.logger.Info("auth operation failed", zap.String("op", op), zap.Error(err))
		s.update(func(st *State) bool {
			st.LastError = err.Error()
			return true
		})
		return false
	}

	return true
}

// markAdmin устанавливает пользователя, созданного как администратор. Без пользователя признак не ставится.
func (s *AuthSession) markAdmin(user *model.Identity) {
	s.update(func(st *State) bool {
		s.gen++
		st.User = user
		st.IsAdmin = user != nil
		return true
	})
}
