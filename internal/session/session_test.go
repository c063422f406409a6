package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/credstore"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

type fixture struct {
	backend *testutil.Backend
	store   *credstore.MemoryStore
	notices *notify.Notifier
	events  *events.Recorder
	mgr     *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend: testutil.NewBackend(t),
		store:   credstore.NewMemoryStore(),
		notices: notify.New(),
		events:  &events.Recorder{},
	}
	var mgr *Manager
	client := apiclient.NewClient(f.backend.URL,
		apiclient.WithTimeout(2*time.Second),
		apiclient.WithTokenFunc(func() string { return mgr.Token() }),
	)
	mgr = NewManager(client, f.store, Options{Notifier: f.notices, Publisher: f.events})
	f.mgr = mgr
	return f
}

func (f *fixture) persisted(t *testing.T) credstore.Credentials {
	t.Helper()
	c, err := f.store.Load(context.Background())
	require.NoError(t, err)
	return c
}

func assertAnonymous(t *testing.T, f *fixture) {
	t.Helper()
	snap := f.mgr.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.Zero(t, snap.UserID)
	assert.False(t, snap.HasToken)
	assert.False(t, f.mgr.IsAuthenticated())
	assert.Equal(t, credstore.Credentials{}, f.persisted(t))
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "7", "role": "user", "exp": exp.Unix()}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return s
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestNewManager_StartsLoading(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, StateLoading, f.mgr.Snapshot().State)
	assert.True(t, f.mgr.IsLoading())
	assert.False(t, f.mgr.IsAuthenticated())
}

func TestRestore_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, token := f.backend.AddUser(models.User{Name: "Ana", Email: "ana@x.io"}, "pw")
	require.NoError(t, f.store.Save(ctx, credstore.Credentials{Token: token, UserID: u.ID}))

	f.mgr.Restore(ctx)

	snap := f.mgr.Snapshot()
	require.Equal(t, StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	assert.Equal(t, "Ana", snap.User.Name)
	assert.Equal(t, u.ID, snap.UserID)
	assert.Equal(t, token, f.mgr.Token())
	assert.Empty(t, f.notices.Drain())

	calls := f.backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer "+token, calls[0].Auth)
}

func TestRestore_NothingPersisted(t *testing.T) {
	f := newFixture(t)
	f.mgr.Restore(context.Background())

	assertAnonymous(t, f)
	assert.Empty(t, f.backend.Calls())
	assert.Empty(t, f.notices.Drain())
}

func TestRestore_PartialCredentialsAreErased(t *testing.T) {
	f := newFixture(t)
	f.store.Put(credstore.KeyToken, "orphan")

	f.mgr.Restore(context.Background())

	assertAnonymous(t, f)
	_, ok := f.store.Raw(credstore.KeyToken)
	assert.False(t, ok)
	assert.Empty(t, f.backend.Calls())
}

func TestRestore_FailureClearsEverything(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture, userID int64)
	}{
		{"unauthorized", func(f *fixture, id int64) {
			f.backend.Fail(http.MethodGet, "/usuarios/"+itoa(id), http.StatusUnauthorized, map[string]string{"message": "Token inválido"})
		}},
		{"not found", func(f *fixture, id int64) {
			f.backend.Fail(http.MethodGet, "/usuarios/"+itoa(id), http.StatusNotFound, nil)
		}},
		{"server error", func(f *fixture, id int64) {
			f.backend.Fail(http.MethodGet, "/usuarios/"+itoa(id), http.StatusInternalServerError, "boom")
		}},
		{"malformed", func(f *fixture, id int64) {
			f.backend.Fail(http.MethodGet, "/usuarios/"+itoa(id), http.StatusOK, "{not json")
		}},
		{"wrong user", func(f *fixture, id int64) {
			f.backend.Fail(http.MethodGet, "/usuarios/"+itoa(id), http.StatusOK, map[string]any{"idCuentaUser": id + 1})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			u, token := f.backend.AddUser(models.User{Email: "a@x.io"}, "pw")
			require.NoError(t, f.store.Save(ctx, credstore.Credentials{Token: token, UserID: u.ID}))
			tc.setup(f, u.ID)

			f.mgr.Restore(ctx)

			assertAnonymous(t, f)
			assert.Equal(t, MsgSessionExpired, f.mgr.Snapshot().Error)
			assert.Equal(t, []notify.Notice{{Level: notify.LevelError, Message: MsgSessionExpired}}, f.notices.Drain())
		})
	}
}

func TestRestore_NetworkFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, token := f.backend.AddUser(models.User{Email: "a@x.io"}, "pw")
	require.NoError(t, f.store.Save(ctx, credstore.Credentials{Token: token, UserID: u.ID}))
	f.backend.Server.Close()

	f.mgr.Restore(ctx)

	assertAnonymous(t, f)
}

func TestRestore_TokenRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.backend.AddUser(models.User{Email: "a@x.io"}, "pw")
	require.NoError(t, f.store.Save(ctx, credstore.Credentials{Token: "forged", UserID: u.ID}))

	f.mgr.Restore(ctx)

	assertAnonymous(t, f)
}

func TestRestore_ExpiredJWTSkipsNetwork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := signedToken(t, time.Now().Add(-time.Hour))
	f.backend.IssueToken(7, token)
	require.NoError(t, f.store.Save(ctx, credstore.Credentials{Token: token, UserID: 7}))

	f.mgr.Restore(ctx)

	assertAnonymous(t, f)
	assert.Empty(t, f.backend.Calls())
}

func TestRestore_LiveJWTIsValidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.backend.AddUser(models.User{ID: 7, Email: "a@x.io"}, "pw")
	token := signedToken(t, time.Now().Add(time.Hour))
	f.backend.IssueToken(u.ID, token)
	require.NoError(t, f.store.Save(ctx, credstore.Credentials{Token: token, UserID: u.ID}))

	f.mgr.Restore(ctx)

	assert.True(t, f.mgr.IsAuthenticated())
	assert.Equal(t, 1, f.backend.CallCount(http.MethodGet, "/usuarios/7"))
}

type failingStore struct{ credstore.MemoryStore }

func (*failingStore) Load(context.Context) (credstore.Credentials, error) {
	return credstore.Credentials{}, errors.New("disk gone")
}

func TestRestore_StoreReadFailure(t *testing.T) {
	backend := testutil.NewBackend(t)
	store := &failingStore{}
	n := notify.New()
	mgr := NewManager(apiclient.NewClient(backend.URL), store, Options{Notifier: n})

	mgr.Restore(context.Background())

	assert.Equal(t, StateAnonymous, mgr.Snapshot().State)
	assert.Empty(t, backend.Calls())
	assert.Equal(t, MsgSessionExpired, mgr.Snapshot().Error)
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.backend.AddUser(models.User{Name: "Ana", Email: "ana@x.io"}, "secret")

	var seen []Snapshot
	f.mgr.OnChange(func(s Snapshot) { seen = append(seen, s) })

	require.NoError(t, f.mgr.Login(ctx, " ana@x.io ", "secret"))

	snap := f.mgr.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, u.ID, snap.UserID)
	c := f.persisted(t)
	assert.Equal(t, u.ID, c.UserID)
	assert.NotEmpty(t, c.Token)
	assert.Equal(t, c.Token, f.mgr.Token())

	assert.Equal(t, []notify.Notice{{Level: notify.LevelSuccess, Message: MsgLoggedIn}}, f.notices.Drain())
	assert.Equal(t, []string{events.UserLoggedIn}, f.events.Types(events.TopicUser))
	require.NotEmpty(t, seen)
	assert.True(t, seen[len(seen)-1].IsAuthenticated())
}

func TestLogin_Failure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.AddUser(models.User{Email: "ana@x.io"}, "secret")

	err := f.mgr.Login(ctx, "ana@x.io", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.Equal(t, MsgInvalidCredentials, UserMessage(err))
	assertAnonymous(t, f)
	assert.Equal(t, MsgInvalidCredentials, f.mgr.Snapshot().Error)
	assert.Empty(t, f.events.Events())
}

func TestLogin_FailureDropsPreviousSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.AddUser(models.User{Email: "ana@x.io"}, "secret")
	require.NoError(t, f.mgr.Login(ctx, "ana@x.io", "secret"))

	require.Error(t, f.mgr.Login(ctx, "ana@x.io", "nope"))
	assertAnonymous(t, f)
}

func TestLogin_NetworkFailureKeepsRootCause(t *testing.T) {
	f := newFixture(t)
	f.backend.Server.Close()

	err := f.mgr.Login(context.Background(), "ana@x.io", "secret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.ErrorIs(t, err, apiclient.ErrNetwork)
	assert.Equal(t, apiclient.KindNetwork, apiclient.KindOf(err))
}

func TestLogin_EmptyFieldsRejectedLocally(t *testing.T) {
	f := newFixture(t)

	err := f.mgr.Login(context.Background(), "", "secret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.backend.Calls())
}

func TestLogin_ResponseWithoutToken(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail(http.MethodPost, "/auth/login", http.StatusOK, map[string]any{"user": map[string]any{"idCuentaUser": 3}})

	err := f.mgr.Login(context.Background(), "a@x.io", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.ErrorIs(t, err, apiclient.ErrDecode)
	assertAnonymous(t, f)
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.mgr.Register(ctx, RegisterRequest{Name: "Luis", Email: "luis@x.io", Phone: "555", Password: "pw"}))

	snap := f.mgr.Snapshot()
	require.True(t, snap.IsAuthenticated())
	assert.Equal(t, "Luis", snap.User.Name)
	assert.Equal(t, snap.UserID, f.persisted(t).UserID)
	assert.Equal(t, []notify.Notice{{Level: notify.LevelSuccess, Message: "Usuario registrado correctamente"}}, f.notices.Drain())
	assert.Equal(t, []string{events.UserRegistered}, f.events.Types(events.TopicUser))
}

func TestRegister_DefaultNotice(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail(http.MethodPost, "/auth/register", http.StatusOK, map[string]any{
		"token": "t-1",
		"user":  map[string]any{"idCuentaUser": 77, "emailUser": "x@x.io"},
	})

	require.NoError(t, f.mgr.Register(context.Background(), RegisterRequest{Email: "x@x.io", Password: "pw"}))
	assert.Equal(t, []notify.Notice{{Level: notify.LevelSuccess, Message: MsgRegistered}}, f.notices.Drain())
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(models.User{Email: "dup@x.io"}, "pw")

	err := f.mgr.Register(context.Background(), RegisterRequest{Email: "dup@x.io", Password: "pw"})
	require.ErrorIs(t, err, ErrRegistration)
	require.ErrorIs(t, err, apiclient.ErrConflict)
	assert.Equal(t, MsgRegistration, UserMessage(err))
	assertAnonymous(t, f)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.AddUser(models.User{Email: "ana@x.io"}, "secret")
	require.NoError(t, f.mgr.Login(ctx, "ana@x.io", "secret"))
	f.notices.Drain()

	f.mgr.Logout(ctx)

	assertAnonymous(t, f)
	assert.Equal(t, []notify.Notice{{Level: notify.LevelSuccess, Message: MsgLoggedOut}}, f.notices.Drain())
	assert.Equal(t, []string{events.UserLoggedIn, events.UserLoggedOut}, f.events.Types(events.TopicUser))
}

func TestLogoutThenRestore_NoNetwork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.AddUser(models.User{Email: "ana@x.io"}, "secret")
	require.NoError(t, f.mgr.Login(ctx, "ana@x.io", "secret"))

	f.mgr.Logout(ctx)
	f.backend.ResetCalls()
	f.mgr.Restore(ctx)

	assertAnonymous(t, f)
	assert.Empty(t, f.backend.Calls())
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.backend.AddUser(models.User{Name: "Ana", Email: "ana@x.io", Phone: "111"}, "secret")
	require.NoError(t, f.mgr.Login(ctx, "ana@x.io", "secret"))
	f.notices.Drain()

	phone := "999"
	require.NoError(t, f.mgr.UpdateProfile(ctx, models.ProfilePatch{Phone: &phone}))

	snap := f.mgr.Snapshot()
	assert.Equal(t, "999", snap.User.Phone)
	assert.Equal(t, "Ana", snap.User.Name)
	stored, _ := f.backend.User(u.ID)
	assert.Equal(t, "999", stored.Phone)
	assert.Equal(t, []notify.Notice{{Level: notify.LevelSuccess, Message: MsgProfileUpdated}}, f.notices.Drain())
}

func TestUpdateProfile_FailureLeavesUserUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.backend.AddUser(models.User{Name: "Ana", Email: "ana@x.io"}, "secret")
	require.NoError(t, f.mgr.Login(ctx, "ana@x.io", "secret"))
	f.backend.Fail(http.MethodPut, "/usuarios/"+itoa(u.ID), http.StatusInternalServerError, nil)

	name := "Other"
	err := f.mgr.UpdateProfile(ctx, models.ProfilePatch{Name: &name})
	require.ErrorIs(t, err, ErrProfileUpdate)
	require.ErrorIs(t, err, apiclient.ErrServer)
	assert.Equal(t, "Ana", f.mgr.Snapshot().User.Name)
	assert.True(t, f.mgr.IsAuthenticated())
}

func TestUpdateProfile_NoUserIsNoop(t *testing.T) {
	f := newFixture(t)
	f.mgr.Restore(context.Background())

	name := "x"
	require.NoError(t, f.mgr.UpdateProfile(context.Background(), models.ProfilePatch{Name: &name}))
	assert.Empty(t, f.backend.Calls())
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.backend.AddUser(models.User{Email: "ana@x.io"}, "old")
	require.NoError(t, f.mgr.Login(ctx, "ana@x.io", "old"))
	f.notices.Drain()

	err := f.mgr.ChangePassword(ctx, "old", "new1", "new2")
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, MsgPasswordMismatch, UserMessage(err))
	assert.Equal(t, 0, f.backend.CallCount(http.MethodPost, "/auth/change-password"))

	err = f.mgr.ChangePassword(ctx, "bad", "new", "new")
	require.ErrorIs(t, err, ErrPasswordChange)
	assert.Equal(t, "La contraseña actual es incorrecta", UserMessage(err))

	require.NoError(t, f.mgr.ChangePassword(ctx, "old", "new", "new"))
	assert.Equal(t, "new", f.backend.Password(u.ID))
}

func TestChangePassword_RequiresSession(t *testing.T) {
	f := newFixture(t)
	f.mgr.Restore(context.Background())
	require.ErrorIs(t, f.mgr.ChangePassword(context.Background(), "a", "b", "b"), ErrNotAuthenticated)
}

func TestIsAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.AddUser(models.User{Email: "root@x.io", Role: models.RoleAdmin}, "pw")
	f.backend.AddUser(models.User{Email: "user@x.io", Role: "cliente"}, "pw")

	require.NoError(t, f.mgr.Login(ctx, "user@x.io", "pw"))
	assert.False(t, f.mgr.IsAdmin())

	require.NoError(t, f.mgr.Login(ctx, "root@x.io", "pw"))
	assert.True(t, f.mgr.IsAdmin())

	f.mgr.Logout(ctx)
	assert.False(t, f.mgr.IsAdmin())
}

func TestSnapshot_IsACopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.AddUser(models.User{Name: "Ana", Email: "ana@x.io"}, "pw")
	require.NoError(t, f.mgr.Login(ctx, "ana@x.io", "pw"))

	snap := f.mgr.Snapshot()
	snap.User.Name = "mutated"
	assert.Equal(t, "Ana", f.mgr.Snapshot().User.Name)
}

func TestRestore_LogoutDuringRestoreWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, token := f.backend.AddUser(models.User{Email: "a@x.io"}, "pw")
	require.NoError(t, f.store.Save(ctx, credstore.Credentials{Token: token, UserID: u.ID}))

	release := make(chan struct{})
	entered := make(chan struct{})
	f.backend.Hook(http.MethodGet, "/usuarios/"+itoa(u.ID), func() {
		close(entered)
		<-release
	})

	done := make(chan struct{})
	go func() {
		f.mgr.Restore(ctx)
		close(done)
	}()
	<-entered
	f.mgr.Logout(ctx)
	close(release)
	<-done

	assertAnonymous(t, f)
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Empty(t, UserMessage(errors.New("other")))
	assert.Equal(t, MsgNotAuthenticated, UserMessage(ErrNotAuthenticated))
	assert.Equal(t, MsgPasswordChange, UserMessage(ErrPasswordChange))
}
