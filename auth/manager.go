package auth

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/syntopia/go-syntopia-client/api"
	"github.com/syntopia/go-syntopia-client/store"
)

// sessionEnvelope is the single persisted unit: user and tokens live and die
// together under one key, so a crash can never leave half a session behind.
type sessionEnvelope struct {
	User   *User       `json:"user"`
	Tokens *AuthTokens `json:"tokens"`
}

// Manager owns the in-memory session state: the current user, the token
// pair, and the last error. It is the only component that mutates them, and
// it mirrors every change into the persistent store. The manager also acts
// as the api.Client's credential source, which makes it the single path
// through which an expired session resolves to signed-out.
type Manager struct {
	client  *api.Client
	store   store.Store
	logger  zerolog.Logger
	nowFunc func() time.Time

	mu         sync.Mutex
	user       *User
	tokens     *AuthTokens
	lastErr    string
	generation uint64       // bumped on every sign-out; stale refreshes check it
	refresh    *refreshCall // non-nil while a refresh is in flight
}

// refreshCall lets concurrent callers share one in-flight refresh.
type refreshCall struct {
	done chan struct{}
	ok   bool
}

type ManagerOption func(*Manager)

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager creates the session manager and registers it as the client's
// credential source.
func NewManager(client *api.Client, sessionStore store.Store, options ...ManagerOption) (*Manager, error) {
	if client == nil {
		return nil, errors.New("[NewManager] client is required")
	}
	if sessionStore == nil {
		return nil, errors.New("[NewManager] session store is required")
	}

	m := &Manager{
		client:  client,
		store:   sessionStore,
		logger:  zerolog.Nop(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}

	client.SetCredentialSource(m)
	return m, nil
}

// Login authenticates with the platform. On success user and tokens are set
// as a pair and persisted; on failure the prior state is left untouched and
// the server's message lands in the error slot.
func (m *Manager) Login(ctx context.Context, credentials LoginCredentials) (*AuthResponse, error) {
	m.ClearError()

	var response AuthResponse
	if err := m.client.Post(ctx, "/auth/login", credentials, &response, api.NoAuth()); err != nil {
		m.setError(api.ErrorMessage(err, "Login failed"))
		return nil, errors.Wrap(err, "[Manager.Login] POST /auth/login")
	}
	if response.User == nil || !response.Tokens.Valid() {
		m.setError("Login failed")
		return nil, errors.Wrap(IncompleteAuthResponseErr, "[Manager.Login]")
	}

	m.setSession(response.User, response.Tokens)
	m.persistSession()
	m.logger.Info().Str("username", response.User.Username).Msg("login successful")
	return &response, nil
}

// Register creates an account. Same contract as Login.
func (m *Manager) Register(ctx context.Context, data RegisterData) (*AuthResponse, error) {
	m.ClearError()

	if err := ValidateRegisterData(data); err != nil {
		m.setError(err.Error())
		return nil, errors.Wrap(err, "[Manager.Register]")
	}

	var response AuthResponse
	if err := m.client.Post(ctx, "/auth/register", data, &response, api.NoAuth()); err != nil {
		m.setError(api.ErrorMessage(err, "Registration failed"))
		return nil, errors.Wrap(err, "[Manager.Register] POST /auth/register")
	}
	if response.User == nil || !response.Tokens.Valid() {
		m.setError("Registration failed")
		return nil, errors.Wrap(IncompleteAuthResponseErr, "[Manager.Register]")
	}

	m.setSession(response.User, response.Tokens)
	m.persistSession()
	m.logger.Info().Str("username", response.User.Username).Msg("registration successful")
	return &response, nil
}

// Logout invalidates the session remotely on a best-effort basis and always
// clears local state. A failing logout call is logged, never surfaced.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	hasTokens := m.tokens.Valid()
	m.mu.Unlock()

	if hasTokens {
		if err := m.client.Post(ctx, "/auth/logout", struct{}{}, nil); err != nil {
			m.logger.Warn().Err(err).Msg("logout API call failed, proceeding with local cleanup")
		}
	}
	m.clearSession()
	m.logger.Info().Msg("logout completed")
}

// RefreshToken exchanges the held refresh token for a new pair. It returns
// false without a network call when no refresh token is held. Any failure
// forces a full local logout, so no partial-retry state is ever left behind.
// Concurrent callers share a single in-flight refresh.
func (m *Manager) RefreshToken(ctx context.Context) bool {
	m.mu.Lock()
	if m.tokens == nil || m.tokens.RefreshToken == "" {
		m.mu.Unlock()
		return false
	}
	if call := m.refresh; call != nil {
		m.mu.Unlock()
		<-call.done
		return call.ok
	}
	call := &refreshCall{done: make(chan struct{})}
	m.refresh = call
	refreshToken := m.tokens.RefreshToken
	generation := m.generation
	m.mu.Unlock()

	return m.doRefresh(ctx, refreshToken, generation, call)
}

func (m *Manager) doRefresh(ctx context.Context, refreshToken string, generation uint64, call *refreshCall) bool {
	defer func() {
		m.mu.Lock()
		m.refresh = nil
		m.mu.Unlock()
		close(call.done)
	}()

	var response struct {
		Tokens *AuthTokens `json:"tokens"`
	}
	err := m.client.Post(ctx, "/auth/refresh",
		map[string]string{"refreshToken": refreshToken}, &response, api.NoAuth())
	if err != nil || !response.Tokens.Valid() {
		m.logger.Error().Err(err).Msg("token refresh failed, forcing logout")
		m.clearSession()
		return false
	}

	m.mu.Lock()
	if m.generation != generation {
		// Signed out while the refresh was in flight; do not resurrect
		// the cleared session.
		m.mu.Unlock()
		return false
	}
	m.tokens = response.Tokens
	m.mu.Unlock()

	call.ok = true
	m.persistSession()
	return true
}

// CheckAuthStatus rehydrates the session from the persistent store at
// startup. Half a session (tokens without user, or the reverse) is treated
// as signed-out and removed. A rehydrated session is verified remotely and
// revived through one refresh attempt if stale; when that fails the user
// simply starts signed out. The returned error is always nil today; the
// signature leaves room for fatal store failures.
func (m *Manager) CheckAuthStatus(ctx context.Context) error {
	raw, err := m.store.Load(store.KeySession)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			m.logger.Warn().Err(err).Msg("discarding unreadable session state")
			m.clearSession()
		}
		return nil
	}

	var envelope sessionEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		m.logger.Warn().Err(err).Msg("discarding corrupt session state")
		m.clearSession()
		return nil
	}
	if envelope.User == nil || !envelope.Tokens.Valid() {
		m.clearSession()
		return nil
	}

	m.setSession(envelope.User, envelope.Tokens)

	if !envelope.Tokens.Expired(m.nowFunc()) {
		if err := m.client.Get(ctx, "/auth/verify", nil); err == nil {
			m.logger.Debug().Msg("stored session verified")
			return nil
		}
	}
	if !m.RefreshToken(ctx) {
		m.logger.Info().Msg("stored session could not be revived")
	}
	return nil
}

// UpdateProfile sends a partial profile change and shallow-merges the
// server's reply onto the current user: returned fields win, everything else
// is retained. With no signed-in user it is a no-op, not an error.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return nil, nil
	}
	m.mu.Unlock()

	m.ClearError()

	var response struct {
		User json.RawMessage `json:"user"`
	}
	if err := m.client.Put(ctx, "/auth/profile", update, &response); err != nil {
		m.setError(api.ErrorMessage(err, "Profile update failed"))
		return nil, errors.Wrap(err, "[Manager.UpdateProfile] PUT /auth/profile")
	}

	merged, err := m.mergeUser(response.User)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.UpdateProfile] merge")
	}
	m.persistSession()
	m.logger.Info().Msg("profile updated")
	return merged, nil
}

// mergeUser overlays the server-returned user fields onto the current user.
// The merge happens at the JSON level so only fields the server actually
// returned are overwritten.
func (m *Manager) mergeUser(raw json.RawMessage) (*User, error) {
	m.mu.Lock()
	current := m.user
	m.mu.Unlock()

	currentJSON, err := json.Marshal(current)
	if err != nil {
		return nil, errors.Wrap(err, "marshal current user")
	}

	base := make(map[string]json.RawMessage)
	if err := json.Unmarshal(currentJSON, &base); err != nil {
		return nil, errors.Wrap(err, "unmarshal current user")
	}

	overlay := make(map[string]json.RawMessage)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &overlay); err != nil {
			return nil, errors.Wrap(err, "unmarshal returned user")
		}
	}
	for field, value := range overlay {
		base[field] = value
	}

	mergedJSON, err := json.Marshal(base)
	if err != nil {
		return nil, errors.Wrap(err, "marshal merged user")
	}
	var merged User
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, errors.Wrap(err, "unmarshal merged user")
	}

	m.mu.Lock()
	m.user = &merged
	m.mu.Unlock()
	return &merged, nil
}

// RequestPasswordReset asks the platform to email a reset token.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	m.ClearError()

	if err := m.client.Post(ctx, "/auth/password-reset-request",
		map[string]string{"email": email}, nil, api.NoAuth()); err != nil {
		m.setError(api.ErrorMessage(err, "Password reset request failed"))
		return errors.Wrap(err, "[Manager.RequestPasswordReset]")
	}
	return nil
}

// ResetPassword redeems a reset token for a new password.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	m.ClearError()

	if err := ValidatePasswordStrength(newPassword); err != nil {
		m.setError(err.Error())
		return errors.Wrap(err, "[Manager.ResetPassword]")
	}
	if err := m.client.Post(ctx, "/auth/password-reset",
		map[string]string{"token": token, "newPassword": newPassword}, nil, api.NoAuth()); err != nil {
		m.setError(api.ErrorMessage(err, "Password reset failed"))
		return errors.Wrap(err, "[Manager.ResetPassword]")
	}
	return nil
}

// IsAuthenticated is true iff both user and tokens are held. It can never be
// true with only one of the two set.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil && m.tokens.Valid()
}

// RequireAuth gates entry to authenticated surfaces.
func (m *Manager) RequireAuth() error {
	if !m.IsAuthenticated() {
		return NotAuthenticatedErr
	}
	return nil
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (m *Manager) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// Tokens returns a copy of the held token pair, or nil.
func (m *Manager) Tokens() *AuthTokens {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return nil
	}
	tokens := *m.tokens
	return &tokens
}

// Error returns the message of the most recent failing action, empty when
// the last action succeeded.
func (m *Manager) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = ""
}

// AccessToken implements api.CredentialSource.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return ""
	}
	return m.tokens.AccessToken
}

// ConsciousnessLevel implements api.CredentialSource from the persisted
// level, so requests carry it even before the profile is loaded.
func (m *Manager) ConsciousnessLevel() string {
	raw, err := m.store.Load(store.KeyConsciousnessLevel)
	if err != nil {
		return ""
	}
	var level string
	if json.Unmarshal(raw, &level) != nil {
		return ""
	}
	return level
}

// Refresh implements api.CredentialSource for the 401 recovery path.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	if !m.RefreshToken(ctx) {
		return "", api.ErrMustReauthenticate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return "", api.ErrMustReauthenticate
	}
	return m.tokens.AccessToken, nil
}

func (m *Manager) setSession(user *User, tokens *AuthTokens) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = user
	m.tokens = tokens
}

func (m *Manager) setError(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = message
}

// persistSession mirrors the in-memory pair into the store as one envelope.
// A failing write leaves the in-memory session intact and is only logged;
// the next successful write repairs the mirror.
func (m *Manager) persistSession() {
	m.mu.Lock()
	envelope := sessionEnvelope{User: m.user, Tokens: m.tokens}
	m.mu.Unlock()

	raw, err := json.Marshal(envelope)
	if err != nil {
		m.logger.Warn().Err(err).Msg("session serialization failed")
		return
	}
	if err := m.store.Save(store.KeySession, raw); err != nil {
		m.logger.Warn().Err(err).Msg("session persistence failed")
	}
}

// clearSession drops the in-memory session and its persisted mirror, and
// bumps the generation so stale in-flight refreshes cannot resurrect it.
func (m *Manager) clearSession() {
	m.mu.Lock()
	m.user = nil
	m.tokens = nil
	m.lastErr = ""
	m.generation++
	m.mu.Unlock()

	if err := m.store.Remove(store.KeySession); err != nil {
		m.logger.Warn().Err(err).Msg("removing persisted session failed")
	}
}
