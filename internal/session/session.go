// Package session owns the process-wide identity: the persisted credential,
// the user profile fetched with it, and the authenticated flag.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/storefront/internal/credstore"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type State string

const (
	StateLoading       State = "loading"
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// Snapshot is a copy of the session; mutating it has no effect on the manager.
type Snapshot struct {
	State    State        `json:"state"              yaml:"state"`
	User     *models.User `json:"user,omitempty"     yaml:"user,omitempty"`
	UserID   int64        `json:"userId,omitempty"   yaml:"userId,omitempty"`
	HasToken bool         `json:"hasToken"           yaml:"hasToken"`
	Error    string       `json:"error,omitempty"    yaml:"error,omitempty"`
}

func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated
}

func (s Snapshot) IsAdmin() bool {
	return s.IsAuthenticated() && s.User != nil && s.User.Role == models.RoleAdmin
}

type RegisterRequest struct {
	Name     string `json:"nombreuser"`
	Email    string `json:"emailuser"`
	Phone    string `json:"tlfuser"`
	Password string `json:"passw"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token   string      `json:"token"`
	User    models.User `json:"user"`
	Message string      `json:"message"`
}

type changePasswordRequest struct {
	UserID          int64  `json:"userId"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type Options struct {
	Notifier  *notify.Notifier
	Publisher events.Publisher
	Now       func() time.Time
}

type Manager struct {
	api     apiclient.API
	store   credstore.Store
	notices *notify.Notifier
	events  events.Publisher
	now     func() time.Time

	mu      sync.RWMutex
	state   State
	token   string
	userID  int64
	user    *models.User
	lastErr string
	// gen changes on every transition; a restore that started under an
	// older generation does not apply its result.
	gen uint64

	lmu       sync.Mutex
	listeners []func(Snapshot)
}

// NewManager returns a manager in the loading state. Call Restore once to
// leave it.
func NewManager(api apiclient.API, store credstore.Store, opts Options) *Manager {
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		api:     api,
		store:   store,
		notices: opts.Notifier,
		events:  opts.Publisher,
		now:     opts.Now,
		state:   StateLoading,
	}
}

// OnChange registers fn to be called after every session transition.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify() {
	snap := m.Snapshot()
	m.lmu.Lock()
	ls := make([]func(Snapshot), len(m.listeners))
	copy(ls, m.listeners)
	m.lmu.Unlock()
	for _, fn := range ls {
		fn(snap)
	}
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		State:    m.state,
		UserID:   m.userID,
		HasToken: m.token != "",
		Error:    m.lastErr,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateAuthenticated
}

func (m *Manager) IsAdmin() bool {
	return m.Snapshot().IsAdmin()
}

func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateLoading
}

// CurrentUserID returns the authenticated user's id.
func (m *Manager) CurrentUserID() (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated {
		return 0, false
	}
	return m.userID, true
}

// Token is the bearer token for backend calls, empty while anonymous.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated {
		return ""
	}
	return m.token
}

func (m *Manager) beginLoading() uint64 {
	m.mu.Lock()
	m.state = StateLoading
	m.gen++
	g := m.gen
	m.mu.Unlock()
	return g
}

func (m *Manager) setAuthenticated(gen uint64, token string, user models.User) bool {
	m.mu.Lock()
	if gen != 0 && gen != m.gen {
		m.mu.Unlock()
		return false
	}
	m.gen++
	m.state = StateAuthenticated
	m.token = token
	m.userID = user.ID
	m.user = &user
	m.lastErr = ""
	m.mu.Unlock()
	m.notify()
	return true
}

func (m *Manager) setAnonymous(gen uint64, errMsg string) bool {
	m.mu.Lock()
	if gen != 0 && gen != m.gen {
		m.mu.Unlock()
		return false
	}
	m.gen++
	m.state = StateAnonymous
	m.token = ""
	m.userID = 0
	m.user = nil
	m.lastErr = errMsg
	m.mu.Unlock()
	m.notify()
	return true
}

func (m *Manager) clearStore(ctx context.Context, l *slog.Logger) {
	if err := m.store.Clear(ctx); err != nil {
		l.Error("clear_credentials_error", "error", err)
	}
}

// Restore validates the persisted credential against the backend. It never
// fails: any problem leaves the session anonymous with the credential erased.
func (m *Manager) Restore(ctx context.Context) {
	l := logging.FromContext(ctx).With("svc", "session.restore")
	gen := m.beginLoading()

	creds, err := m.store.Load(ctx)
	if err != nil {
		l.Warn("restore_error", "stage", "load", "error", err)
		m.failRestore(ctx, gen)
		return
	}
	if !creds.Complete() {
		if creds.Token != "" || creds.UserID != 0 {
			l.Warn("restore_partial_credentials")
			m.clearStore(ctx, l)
		}
		m.setAnonymous(gen, "")
		return
	}

	if tokens.ExpiredAt(creds.Token, m.now()) {
		l.Info("restore_error", "stage", "expiry", "error", ErrSessionExpired)
		m.failRestore(ctx, gen)
		return
	}

	var user models.User
	path := "/usuarios/" + strconv.FormatInt(creds.UserID, 10)
	if err := m.api.Get(ctx, path, &user, apiclient.Bearer(creds.Token)); err != nil {
		l.Warn("restore_error", "stage", "fetch", "kind", string(apiclient.KindOf(err)), "error", err)
		m.failRestore(ctx, gen)
		return
	}
	if user.ID == 0 {
		user.ID = creds.UserID
	}
	if user.ID != creds.UserID {
		l.Warn("restore_error", "stage", "fetch", "error", fmt.Errorf("backend returned user %d for %d", user.ID, creds.UserID))
		m.failRestore(ctx, gen)
		return
	}

	if m.setAuthenticated(gen, creds.Token, user) {
		l.Info("session_restored", "user_id", user.ID)
	}
}

func (m *Manager) failRestore(ctx context.Context, gen uint64) {
	l := logging.FromContext(ctx).With("svc", "session.restore")
	m.mu.RLock()
	stale := gen != m.gen
	m.mu.RUnlock()
	if stale {
		return
	}
	m.clearStore(ctx, l)
	if m.setAnonymous(gen, MsgSessionExpired) {
		m.notices.Error(ctx, MsgSessionExpired)
	}
}

func (m *Manager) Login(ctx context.Context, email, password string) error {
	l := logging.FromContext(ctx).With("svc", "session.login")
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return m.failAuth(ctx, ErrInvalidCredentials, MsgInvalidCredentials,
			fmt.Errorf("email and password required: %w", ErrValidation))
	}

	gen := m.beginLoading()
	var resp authResponse
	err := m.api.Post(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &resp, apiclient.Bearer(""))
	if err == nil {
		err = m.adopt(ctx, gen, resp)
	}
	if err != nil {
		l.Warn("login_error", "kind", string(apiclient.KindOf(err)), "error", err)
		return m.failAuth(ctx, ErrInvalidCredentials, MsgInvalidCredentials, err)
	}

	l.Info("login_success", "user_id", resp.User.ID)
	m.notices.Success(ctx, MsgLoggedIn)
	events.Emit(ctx, m.events, events.TopicUser, events.Event{Type: events.UserLoggedIn, UserID: resp.User.ID})
	return nil
}

func (m *Manager) Register(ctx context.Context, req RegisterRequest) error {
	l := logging.FromContext(ctx).With("svc", "session.register")
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" {
		return m.failAuth(ctx, ErrRegistration, MsgRegistration,
			fmt.Errorf("email and password required: %w", ErrValidation))
	}

	gen := m.beginLoading()
	var resp authResponse
	err := m.api.Post(ctx, "/auth/register", req, &resp, apiclient.Bearer(""))
	if err == nil {
		err = m.adopt(ctx, gen, resp)
	}
	if err != nil {
		l.Warn("register_error", "kind", string(apiclient.KindOf(err)), "error", err)
		return m.failAuth(ctx, ErrRegistration, MsgRegistration, err)
	}

	msg := resp.Message
	if msg == "" {
		msg = MsgRegistered
	}
	l.Info("register_success", "user_id", resp.User.ID)
	m.notices.Success(ctx, msg)
	events.Emit(ctx, m.events, events.TopicUser, events.Event{Type: events.UserRegistered, UserID: resp.User.ID})
	return nil
}

// adopt persists a fresh credential and makes it the session.
func (m *Manager) adopt(ctx context.Context, gen uint64, resp authResponse) error {
	if resp.Token == "" || resp.User.ID <= 0 {
		return &apiclient.Error{Op: "auth", Kind: apiclient.KindDecode, Err: errors.New("response lacks token or user id")}
	}
	creds := credstore.Credentials{Token: resp.Token, UserID: resp.User.ID}
	if err := m.store.Save(ctx, creds); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	if !m.setAuthenticated(gen, resp.Token, resp.User) {
		return errors.New("session changed during authentication")
	}
	return nil
}

// failAuth forces the anonymous state after a failed login or registration.
func (m *Manager) failAuth(ctx context.Context, sentinel error, msg string, cause error) error {
	l := logging.FromContext(ctx).With("svc", "session.auth")
	m.clearStore(ctx, l)
	m.setAnonymous(0, msg)
	m.notices.Error(ctx, msg)
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// Logout erases the credential and the profile. It cannot fail.
func (m *Manager) Logout(ctx context.Context) {
	l := logging.FromContext(ctx).With("svc", "session.logout")
	userID, _ := m.CurrentUserID()

	m.clearStore(ctx, l)
	m.setAnonymous(0, "")

	l.Info("logout_success", "user_id", userID)
	m.notices.Success(ctx, MsgLoggedOut)
	if userID != 0 {
		events.Emit(ctx, m.events, events.TopicUser, events.Event{Type: events.UserLoggedOut, UserID: userID})
	}
}

// UpdateProfile sends only the fields set in patch and merges them into the
// local user on success. Without a user it does nothing.
func (m *Manager) UpdateProfile(ctx context.Context, patch models.ProfilePatch) error {
	l := logging.FromContext(ctx).With("svc", "session.update_profile")

	m.mu.RLock()
	user := m.user
	userID := m.userID
	authenticated := m.state == StateAuthenticated
	m.mu.RUnlock()
	if !authenticated || user == nil || patch.Empty() {
		return nil
	}

	path := "/usuarios/" + strconv.FormatInt(userID, 10)
	if err := m.api.Put(ctx, path, patch, nil); err != nil {
		l.Warn("update_profile_error", "kind", string(apiclient.KindOf(err)), "error", err)
		m.mu.Lock()
		m.lastErr = MsgProfileUpdate
		m.mu.Unlock()
		m.notices.Error(ctx, MsgProfileUpdate)
		return fmt.Errorf("%w: %w", ErrProfileUpdate, err)
	}

	m.mu.Lock()
	if m.user != nil && m.userID == userID {
		u := *m.user
		patch.Apply(&u)
		m.user = &u
		m.lastErr = ""
	}
	m.mu.Unlock()
	m.notify()

	l.Info("update_profile_success", "user_id", userID)
	m.notices.Success(ctx, MsgProfileUpdated)
	return nil
}

func (m *Manager) ChangePassword(ctx context.Context, current, next, confirm string) error {
	l := logging.FromContext(ctx).With("svc", "session.change_password")

	userID, ok := m.CurrentUserID()
	if !ok {
		return ErrNotAuthenticated
	}
	if next != confirm {
		m.notices.Error(ctx, MsgPasswordMismatch)
		return fmt.Errorf("%w: %w", ErrValidation, ErrPasswordMismatch)
	}
	if current == "" || next == "" {
		return fmt.Errorf("%w: password fields required", ErrValidation)
	}

	req := changePasswordRequest{UserID: userID, CurrentPassword: current, NewPassword: next}
	if err := m.api.Post(ctx, "/auth/change-password", req, nil); err != nil {
		l.Warn("change_password_error", "kind", string(apiclient.KindOf(err)), "error", err)
		err = fmt.Errorf("%w: %w", ErrPasswordChange, err)
		m.notices.Error(ctx, UserMessage(err))
		return err
	}

	l.Info("change_password_success", "user_id", userID)
	m.notices.Success(ctx, MsgPasswordChanged)
	return nil
}
