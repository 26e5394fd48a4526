package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/syntopia/go-syntopia-client/api"
	"github.com/syntopia/go-syntopia-client/auth"
	"github.com/syntopia/go-syntopia-client/store"
	"github.com/syntopia/go-syntopia-client/store/storefakes"
)

const (
	testUserID   = "u1"
	testEmail    = "a@x.com"
	testPassword = "p"
)

type testFixture struct {
	t       *testing.T
	mux     *http.ServeMux
	server  *httptest.Server
	store   *storefakes.FakeStore
	client  *api.Client
	manager *auth.Manager
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	sessionStore := storefakes.NewFakeStore()
	client := api.New(server.URL)
	manager, err := auth.NewManager(client, sessionStore)
	require.NoError(t, err)

	return &testFixture{
		t:       t,
		mux:     mux,
		server:  server,
		store:   sessionStore,
		client:  client,
		manager: manager,
	}
}

func testTokens(access, refresh string) *auth.AuthTokens {
	return &auth.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		IssuedAt:     time.Now(),
	}
}

func (f *testFixture) handleLogin(access, refresh string) {
	f.t.Helper()
	f.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(auth.AuthResponse{
			User:    &auth.User{ID: testUserID, Username: "seeker", Email: testEmail},
			Tokens:  testTokens(access, refresh),
			Message: "welcome",
		})
	})
}

func (f *testFixture) login(access, refresh string) {
	f.t.Helper()
	f.handleLogin(access, refresh)
	_, err := f.manager.Login(context.Background(),
		auth.LoginCredentials{Email: testEmail, Password: testPassword})
	require.NoError(f.t, err)
}

func (f *testFixture) persistedEnvelope() (user *auth.User, tokens *auth.AuthTokens) {
	f.t.Helper()
	raw, err := f.store.Load(store.KeySession)
	require.NoError(f.t, err)
	var envelope struct {
		User   *auth.User       `json:"user"`
		Tokens *auth.AuthTokens `json:"tokens"`
	}
	require.NoError(f.t, json.Unmarshal(raw, &envelope))
	return envelope.User, envelope.Tokens
}

func TestLogin_Success(t *testing.T) {
	f := setupTestFixture(t)
	f.login("t1", "r1")

	require.True(t, f.manager.IsAuthenticated())
	require.Equal(t, testUserID, f.manager.CurrentUser().ID)
	require.Empty(t, f.manager.Error())

	user, tokens := f.persistedEnvelope()
	require.Equal(t, testUserID, user.ID)
	require.Equal(t, "t1", tokens.AccessToken)
	require.Equal(t, "r1", tokens.RefreshToken)
}

func TestLogin_FailureLeavesStateUntouched(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid credentials"}`))
	})

	_, err := f.manager.Login(context.Background(),
		auth.LoginCredentials{Email: testEmail, Password: "wrong"})
	require.Error(t, err)
	require.False(t, f.manager.IsAuthenticated())
	require.Equal(t, "invalid credentials", f.manager.Error())

	_, err = f.store.Load(store.KeySession)
	require.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestLoginThenLogout_FinalStateSignedOut(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f.login("t1", "r1")

	f.manager.Logout(context.Background())

	require.False(t, f.manager.IsAuthenticated())
	require.Nil(t, f.manager.CurrentUser())
	require.Nil(t, f.manager.Tokens())
	require.Empty(t, f.manager.Error())

	_, err := f.store.Load(store.KeySession)
	require.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestLogout_RemoteFailureStillClearsLocally(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	f.login("t1", "r1")

	f.manager.Logout(context.Background())

	require.False(t, f.manager.IsAuthenticated())
	_, err := f.store.Load(store.KeySession)
	require.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestRefreshToken_NoTokenHeldMakesNoNetworkCall(t *testing.T) {
	f := setupTestFixture(t)
	var calls int64
	f.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	})

	require.False(t, f.manager.RefreshToken(context.Background()))
	require.Zero(t, atomic.LoadInt64(&calls))
}

func TestRefreshToken_SuccessReplacesAndPersistsTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, "r1", body["refreshToken"])
		json.NewEncoder(w).Encode(map[string]any{"tokens": testTokens("t2", "r2")})
	})
	f.login("t1", "r1")

	require.True(t, f.manager.RefreshToken(context.Background()))
	require.Equal(t, "t2", f.manager.Tokens().AccessToken)

	_, tokens := f.persistedEnvelope()
	require.Equal(t, "t2", tokens.AccessToken)
	require.Equal(t, "r2", tokens.RefreshToken)
}

func TestRefreshToken_FailureForcesFullLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"refresh token expired"}`))
	})
	f.login("t1", "r1")

	require.False(t, f.manager.RefreshToken(context.Background()))
	require.False(t, f.manager.IsAuthenticated())
	require.Nil(t, f.manager.Tokens())

	_, err := f.store.Load(store.KeySession)
	require.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestRefreshToken_ConcurrentCallersShareOneFlight(t *testing.T) {
	f := setupTestFixture(t)
	var refreshes int64
	entered := make(chan struct{})
	release := make(chan struct{})
	f.mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&refreshes, 1) == 1 {
			close(entered)
		}
		<-release
		json.NewEncoder(w).Encode(map[string]any{"tokens": testTokens("t2", "r2")})
	})
	f.login("t1", "r1")

	const callers = 8
	results := make(chan bool, callers)
	go func() { results <- f.manager.RefreshToken(context.Background()) }()
	// Once the first refresh has reached the server, every later caller must
	// join it rather than start its own.
	<-entered
	for i := 1; i < callers; i++ {
		go func() { results <- f.manager.RefreshToken(context.Background()) }()
	}
	close(release)

	for i := 0; i < callers; i++ {
		require.True(t, <-results)
	}
	require.EqualValues(t, 1, atomic.LoadInt64(&refreshes))
	require.Equal(t, "t2", f.manager.Tokens().AccessToken)

	_, tokens := f.persistedEnvelope()
	require.Equal(t, "t2", tokens.AccessToken)
	require.Equal(t, "r2", tokens.RefreshToken)
}

func TestRefreshToken_LogoutMidFlightIsNotResurrected(t *testing.T) {
	f := setupTestFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		json.NewEncoder(w).Encode(map[string]any{"tokens": testTokens("t2", "r2")})
	})
	f.mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	f.login("t1", "r1")

	result := make(chan bool, 1)
	go func() { result <- f.manager.RefreshToken(context.Background()) }()
	<-entered

	f.manager.Logout(context.Background())
	close(release)

	require.False(t, <-result, "a refresh finishing after sign-out must not report success")
	require.False(t, f.manager.IsAuthenticated())
	require.Nil(t, f.manager.Tokens())

	_, err := f.store.Load(store.KeySession)
	require.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestAuthenticated401_ExactlyOneRefreshAndOneRetry(t *testing.T) {
	f := setupTestFixture(t)
	var refreshes, verifies int64
	f.mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshes, 1)
		json.NewEncoder(w).Encode(map[string]any{"tokens": testTokens("t2", "r2")})
	})
	f.mux.HandleFunc("GET /auth/verify", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&verifies, 1)
		// Reject even the refreshed token: the client must not loop.
		w.WriteHeader(http.StatusUnauthorized)
	})
	f.login("t1", "r1")

	err := f.client.Get(context.Background(), "/auth/verify", nil)
	require.True(t, api.IsStatus(err, http.StatusUnauthorized))
	require.EqualValues(t, 1, atomic.LoadInt64(&refreshes))
	require.EqualValues(t, 2, atomic.LoadInt64(&verifies))
}

func TestCheckAuthStatus_RehydratesValidSession(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("GET /auth/verify", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})

	envelope, _ := json.Marshal(map[string]any{
		"user":   &auth.User{ID: testUserID, Email: testEmail},
		"tokens": testTokens("t1", "r1"),
	})
	require.NoError(t, f.store.Save(store.KeySession, envelope))

	require.NoError(t, f.manager.CheckAuthStatus(context.Background()))
	require.True(t, f.manager.IsAuthenticated())
}

func TestCheckAuthStatus_ExpiredTokensAreRefreshed(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"tokens": testTokens("t2", "r2")})
	})

	expired := &auth.AuthTokens{
		AccessToken:  "t1",
		RefreshToken: "r1",
		TokenType:    "Bearer",
		ExpiresIn:    60,
		IssuedAt:     time.Now().Add(-time.Hour),
	}
	envelope, _ := json.Marshal(map[string]any{
		"user":   &auth.User{ID: testUserID, Email: testEmail},
		"tokens": expired,
	})
	require.NoError(t, f.store.Save(store.KeySession, envelope))

	require.NoError(t, f.manager.CheckAuthStatus(context.Background()))
	require.True(t, f.manager.IsAuthenticated())
	require.Equal(t, "t2", f.manager.Tokens().AccessToken)
}

func TestCheckAuthStatus_PartialStorageCollapsesToSignedOut(t *testing.T) {
	f := setupTestFixture(t)

	// Tokens without a user: must resolve to signed-out, not half a session.
	envelope, _ := json.Marshal(map[string]any{"tokens": testTokens("t1", "r1")})
	require.NoError(t, f.store.Save(store.KeySession, envelope))

	require.NoError(t, f.manager.CheckAuthStatus(context.Background()))
	require.False(t, f.manager.IsAuthenticated())

	_, err := f.store.Load(store.KeySession)
	require.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestCheckAuthStatus_CorruptStorageCollapsesToSignedOut(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(store.KeySession, []byte("not json")))

	require.NoError(t, f.manager.CheckAuthStatus(context.Background()))
	require.False(t, f.manager.IsAuthenticated())
}

func TestCheckAuthStatus_NothingStoredStaysSignedOut(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.CheckAuthStatus(context.Background()))
	require.False(t, f.manager.IsAuthenticated())
}

func TestUpdateProfile_NoUserIsANoop(t *testing.T) {
	f := setupTestFixture(t)
	var calls int64
	f.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	})

	user, err := f.manager.UpdateProfile(context.Background(), auth.ProfileUpdate{})
	require.NoError(t, err)
	require.Nil(t, user)
	require.Zero(t, atomic.LoadInt64(&calls))
}

func TestUpdateProfile_ShallowMergeRetainsUnreturnedFields(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("PUT /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"firstName":"Aurora"}}`))
	})
	f.login("t1", "r1")

	firstName := "Aurora"
	user, err := f.manager.UpdateProfile(context.Background(), auth.ProfileUpdate{FirstName: &firstName})
	require.NoError(t, err)
	require.Equal(t, "Aurora", user.FirstName)
	require.Equal(t, testEmail, user.Email)
	require.Equal(t, testUserID, user.ID)

	persisted, _ := f.persistedEnvelope()
	require.Equal(t, "Aurora", persisted.FirstName)
}

func TestRequireAuth(t *testing.T) {
	f := setupTestFixture(t)
	require.ErrorIs(t, f.manager.RequireAuth(), auth.NotAuthenticatedErr)

	f.login("t1", "r1")
	require.NoError(t, f.manager.RequireAuth())
}

func TestErrorSlot_ClearedOnNextSuccessfulActionStart(t *testing.T) {
	f := setupTestFixture(t)
	f.mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"email already registered"}`))
	})

	_, err := f.manager.Register(context.Background(), auth.RegisterData{
		Username:            "seeker",
		Email:               testEmail,
		Password:            "Syntopia1",
		AcceptTerms:         true,
		AcceptPrivacyPolicy: true,
	})
	require.Error(t, err)
	require.Equal(t, "email already registered", f.manager.Error())

	f.login("t1", "r1")
	require.Empty(t, f.manager.Error())
}
