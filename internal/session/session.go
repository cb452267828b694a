// Package session реализует состояние аутентификации клиента поверх внешнего провайдера идентификации.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/gophershop/internal/model"
)

// IdentityProvider описывает контракт внешнего провайдера идентификации.
type IdentityProvider interface {
	// CurrentUser синхронно возвращает текущего пользователя или nil.
	CurrentUser() *model.Identity
	// Changes подписывается на смену пользователя. Канал закрывается после отмены ctx.
	Changes(ctx context.Context) <-chan *model.Identity

	SignIn(ctx context.Context, email, password string) (*model.Identity, error)
	SignUp(ctx context.Context, email, password string) (*model.Identity, error)
	SignUpAdmin(ctx context.Context, email, password, displayName, adminCode string) (*model.Identity, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	DeleteAccount(ctx context.Context) error
	Reauthenticate(ctx context.Context, email, password string) error
}

// AdminLookup проверяет признак администратора в хранилище документов.
type AdminLookup interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
}

// State описывает снимок состояния сессии.
type State struct {
	User      *model.Identity
	Loading   bool
	LastError string
	IsAdmin   bool
}

type observer struct {
	id int
	fn func(State)
}

// notification хранит снимок состояния и список наблюдателей на момент изменения.
type notification struct {
	state     State
	observers []observer
}

// AuthSession хранит текущего пользователя, флаг загрузки, последнюю ошибку и признак администратора.
// Все изменения состояния сериализованы мьютексом. Снимки доставляются наблюдателям вне блокировки,
// по одному и в порядке изменений. Фоновые горутины сессии наблюдателей не вызывают.
type AuthSession struct {
	provider IdentityProvider
	admins   AdminLookup
	logger   *zap.Logger

	mu        sync.Mutex
	state     State
	gen       uint64
	observers []observer
	nextID    int
	closed    bool
	pending   []notification
	draining  bool

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	ready     chan struct{}
	closeOnce sync.Once
}

// New создаёт сессию: читает текущего пользователя и подписывается на поток изменений провайдера.
func New(provider IdentityProvider, admins AdminLookup, logger *zap.Logger) *AuthSession {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &AuthSession{
		provider: provider,
		admins:   admins,
		logger:   logger.With(zap.String("component", "auth-session")),
		cancel:   cancel,
		ready:    make(chan struct{}),
	}

	user := provider.CurrentUser()
	s.state.User = user

	if user != nil {
		gen := s.gen
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer close(s.ready)
			s.resolveAdmin(ctx, gen, user.UID, true)
		}()
	} else {
		close(s.ready)
	}

	changes := provider.Changes(ctx)
	s.wg.Add(1)
	go s.watch(ctx, changes)

	return s
}

// Ready закрывается, когда завершилось начальное определение признака администратора.
func (s *AuthSession) Ready() <-chan struct{} {
	return s.ready
}

// Close отменяет подписку на поток изменений и дожидается завершения фоновых горутин.
// Close можно вызывать из наблюдателя: фоновые горутины не ждут наблюдателей.
func (s *AuthSession) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.observers = nil
		s.pending = nil
		s.mu.Unlock()

		s.cancel()
		s.wg.Wait()
	})
}

// State возвращает снимок текущего состояния.
func (s *AuthSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentUser возвращает текущего пользователя или nil.
func (s *AuthSession) CurrentUser() *model.Identity {
	return s.State().User
}

// IsLoading сообщает, выполняется ли сейчас операция.
func (s *AuthSession) IsLoading() bool {
	return s.State().Loading
}

// LastError возвращает текст последней ошибки.
func (s *AuthSession) LastError() string {
	return s.State().LastError
}

// IsAdmin сообщает, является ли текущий пользователь администратором.
func (s *AuthSession) IsAdmin() bool {
	return s.State().IsAdmin
}

// ClearError сбрасывает последнюю ошибку.
func (s *AuthSession) ClearError() {
	s.update(func(st *State) bool {
		if st.LastError == "" {
			return false
		}
		st.LastError = ""
		return true
	})
}

// Subscribe регистрирует наблюдателя. Возвращённая функция отменяет подписку.
func (s *AuthSession) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if !s.closed {
		s.observers = append(s.observers, observer{id: id, fn: fn})
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			kept := make([]observer, 0, len(s.observers))
			for _, o := range s.observers {
				if o.id != id {
					kept = append(kept, o)
				}
			}
			s.observers = kept
		})
	}
}

func (s *AuthSession) watch(ctx context.Context, changes <-chan *model.Identity) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case user, ok := <-changes:
			if !ok {
				return
			}
			gen := s.setUser(user, true)
			if user != nil {
				s.wg.Add(1)
				go func(uid string) {
					defer s.wg.Done()
					s.resolveAdmin(ctx, gen, uid, true)
				}(user.UID)
			}
		}
	}
}

// setUser заменяет текущего пользователя и начинает новое поколение.
// Для nil признак администратора сбрасывается сразу, без обращения к хранилищу.
func (s *AuthSession) setUser(user *model.Identity, background bool) uint64 {
	var gen uint64
	s.apply(background, func(st *State) bool {
		s.gen++
		gen = s.gen
		st.User = user
		if user == nil {
			st.IsAdmin = false
		}
		return true
	})
	return gen
}

// resolveAdmin применяет результат проверки, только если пользователь не сменился за время запроса.
func (s *AuthSession) resolveAdmin(ctx context.Context, gen uint64, uid string, background bool) {
	isAdmin, err := s.admins.IsAdmin(ctx, uid)
	if err != nil {
		s.logger.Warn("admin status lookup failed", zap.String("uid", uid), zap.Error(err))
		isAdmin = false
	}

	applied := false
	s.apply(background, func(st *State) bool {
		if s.gen != gen {
			return false
		}
		st.IsAdmin = isAdmin
		applied = true
		return true
	})

	if !applied {
		s.logger.Debug("stale admin status discarded", zap.String("uid", uid))
	}
}

// update изменяет состояние под блокировкой. Если очередь уведомлений свободна, наблюдатели вызываются из вызывающей горутины.
// fn возвращает false, если состояние не изменилось.
func (s *AuthSession) update(fn func(st *State) bool) {
	s.apply(false, fn)
}

// apply ставит снимок в очередь уведомлений. Очередь разбирает один потребитель за раз:
// вызывающая горутина, а для фоновых изменений отдельная горутина вне wg.
func (s *AuthSession) apply(background bool, fn func(st *State) bool) {
	s.mu.Lock()
	changed := fn(&s.state)
	if !changed || s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.observers) > 0 {
		s.pending = append(s.pending, notification{
			state:     s.state,
			observers: append([]observer(nil), s.observers...),
		})
	}
	if s.draining || len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	if background {
		go s.drain()
		return
	}
	s.drain()
}

func (s *AuthSession) drain() {
	for {
		s.mu.Lock()
		if s.closed || len(s.pending) == 0 {
			s.pending = nil
			s.draining = false
			s.mu.Unlock()
			return
		}
		n := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, o := range n.observers {
			o.fn(n.state)
		}
	}
}
