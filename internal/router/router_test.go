package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"account-service/internal/auth"
	"account-service/internal/config"
	"account-service/internal/models"
	"account-service/internal/repository"
	"account-service/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memoryRepo is an in-process core.UserRepository with the same unique-index
// and conditional-update semantics as the real stores.
type memoryRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*models.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*models.User)}
}

func (m *memoryRepo) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return &repository.DuplicateKeyError{Field: "email"}
		}
		if u.Username == user.Username {
			return &repository.DuplicateKeyError{Field: "username"}
		}
	}
	m.seq++
	user.ID = "id-" + strconv.Itoa(m.seq)
	user.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memoryRepo) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			found := *u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *memoryRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *memoryRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username })
}

func (m *memoryRepo) GetByResetToken(ctx context.Context, digest string) (*models.User, error) {
	return m.find(func(u *models.User) bool {
		return u.ResetPasswordToken != nil && *u.ResetPasswordToken == digest
	})
}

func (m *memoryRepo) Update(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for otherID, other := range m.users {
		if otherID == id {
			continue
		}
		if update.Email != nil && other.Email == *update.Email {
			return nil, &repository.DuplicateKeyError{Field: "email"}
		}
		if update.Username != nil && other.Username == *update.Username {
			return nil, &repository.DuplicateKeyError{Field: "username"}
		}
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.FirstName, update.FirstName)
	set(&u.LastName, update.LastName)
	set(&u.Email, update.Email)
	set(&u.Username, update.Username)
	set(&u.PasswordHash, update.PasswordHash)
	set(&u.Image, update.Image)
	if update.Role != nil {
		u.Role = *update.Role
	}
	updated := *u
	return &updated, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryRepo) List(ctx context.Context, q models.ListQuery) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(q.Search)
	var matched []models.User
	for _, u := range m.users {
		haystack := strings.ToLower(strings.Join([]string{u.FirstName, u.LastName, u.Email, u.Username}, "\x00"))
		if needle == "" || strings.Contains(haystack, needle) {
			matched = append(matched, *u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []models.User{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], total, nil
}

func (m *memoryRepo) SetResetToken(ctx context.Context, id, digest string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetPasswordToken = &digest
	u.ResetPasswordExpiry = &expiry
	return nil
}

func (m *memoryRepo) ResetPassword(ctx context.Context, id, digest, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.ResetPasswordToken == nil || *u.ResetPasswordToken != digest {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.ResetPasswordToken = nil
	u.ResetPasswordExpiry = nil
	return nil
}

func (m *memoryRepo) Ping(ctx context.Context) error { return nil }

// captureNotifier records reset tokens instead of mailing them.
type captureNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (n *captureNotifier) SendPasswordReset(ctx context.Context, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens[to] = token
	return nil
}

func (n *captureNotifier) SendWelcome(ctx context.Context, to, name string) error { return nil }

type testServer struct {
	t        *testing.T
	handler  http.Handler
	repo     *memoryRepo
	notifier *captureNotifier
	tokens   *auth.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	repo := newMemoryRepo()
	notifier := &captureNotifier{tokens: make(map[string]string)}
	tokens := auth.NewTokenIssuer("router-test-secret-that-is-long-enough", time.Hour, "account-service")
	users := service.NewUserService(repo, auth.NewBcryptHasher(bcrypt.MinCost), tokens, notifier, zerolog.Nop(), service.Options{})

	app := &config.Application{
		Config: config.Config{
			AppEnv:             "test",
			RequestTimeout:     5,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
		},
		Logger: zerolog.Nop(),
		Store:  repo,
		Users:  users,
		Tokens: tokens,
	}
	return &testServer{t: t, handler: Setup(app), repo: repo, notifier: notifier, tokens: tokens}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp map[string]interface{}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	_, hasSuccess := resp["success"]
	assert.True(s.t, hasSuccess, "envelope must carry success")
	return rec.Code, resp
}

func (s *testServer) register(email, username, password string) (int, map[string]interface{}) {
	return s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email":           email,
		"username":        username,
		"password":        password,
		"confirmPassword": password,
	})
}

func (s *testServer) login(email, password string) string {
	code, resp := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, code)
	return resp["data"].(map[string]interface{})["token"].(string)
}

func (s *testServer) makeAdmin(email string) {
	u, err := s.repo.GetByEmail(context.Background(), email)
	require.NoError(s.t, err)
	role := models.RoleAdmin
	_, err = s.repo.Update(context.Background(), u.ID, models.UserUpdate{Role: &role})
	require.NoError(s.t, err)
}

func TestEndToEndAccountLifecycle(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.register("a@x.com", "alice", "secret1")
	require.Equal(t, http.StatusCreated, code)
	alice := resp["data"].(map[string]interface{})
	aliceID := alice["id"].(string)
	assert.NotContains(t, alice, "password")
	assert.Equal(t, "user", alice["role"])

	stored, err := s.repo.GetByID(context.Background(), aliceID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	code, resp = s.register("a@x.com", "alice2", "secret1")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Email already in use", resp["message"])

	code, resp = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials", resp["message"])

	code, resp = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", resp["message"])

	aliceToken := s.login("a@x.com", "secret1")

	code, resp = s.do(http.MethodDelete, "/admin/users/"+aliceID, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Forbidden", resp["message"])

	code, _ = s.register("root@x.com", "root", "rootpass")
	require.Equal(t, http.StatusCreated, code)
	s.makeAdmin("root@x.com")
	adminToken := s.login("root@x.com", "rootpass")

	code, resp = s.do(http.MethodDelete, "/admin/users/"+aliceID, adminToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "User Deleted", resp["message"])

	code, resp = s.do(http.MethodGet, "/admin/users/"+aliceID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, resp["success"])

	code, _ = s.do(http.MethodDelete, "/admin/users/"+aliceID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(http.MethodGet, "/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthorized", resp["message"])

	code, resp = s.do(http.MethodGet, "/admin/users", "garbage.token.value", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid token", resp["message"])

	expired := auth.NewTokenIssuer("router-test-secret-that-is-long-enough", -time.Minute, "account-service")
	token, _, err := expired.Issue(&models.User{ID: "x", Role: models.RoleAdmin})
	require.NoError(t, err)
	code, _ = s.do(http.MethodGet, "/admin/users", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAPIPrefixServesSameRoutes(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "p@x.com", "username": "prefixed", "password": "secret1", "confirmPassword": "secret1",
	})
	assert.Equal(t, http.StatusCreated, code)

	code, resp := s.do(http.MethodGet, "/api/", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Welcome to the API", resp["message"])
}

func TestAdminPaginationAndSearch(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"anna", "bert", "carl", "dora", "erik"} {
		code, _ := s.register(name+"@x.com", name, "secret1")
		require.Equal(t, http.StatusCreated, code)
	}
	s.makeAdmin("anna@x.com")
	token := s.login("anna@x.com", "secret1")

	code, resp := s.do(http.MethodGet, "/admin/users?page=1&limit=2", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(5), resp["total"])
	assert.Equal(t, float64(3), resp["totalPages"])
	assert.Len(t, resp["data"], 2)

	code, resp = s.do(http.MethodGet, "/admin/users?page=9&limit=2", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(5), resp["total"])
	assert.Len(t, resp["data"], 0)

	code, resp = s.do(http.MethodGet, "/admin/users?search=DOR", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp["total"])
	data := resp["data"].([]interface{})
	assert.Equal(t, "dora", data[0].(map[string]interface{})["username"])

	code, resp = s.do(http.MethodGet, "/admin/users?search=zzz", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp["total"])
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.register("a@x.com", "alice", "secret1")
	require.Equal(t, http.StatusCreated, code)

	code, resp := s.do(http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Empty(t, s.notifier.tokens)

	code, _ = s.do(http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, code)
	token := s.notifier.tokens["a@x.com"]
	require.NotEmpty(t, token)

	reset := map[string]string{"token": token, "password": "newpass1", "confirmPassword": "newpass1"}
	code, _ = s.do(http.MethodPost, "/auth/reset-password", "", reset)
	assert.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodPost, "/auth/reset-password", "", reset)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired token", resp["message"])

	s.login("a@x.com", "newpass1")
}

func TestSelfUpdate(t *testing.T) {
	s := newTestServer(t)
	code, resp := s.register("a@x.com", "alice", "secret1")
	require.Equal(t, http.StatusCreated, code)
	aliceID := resp["data"].(map[string]interface{})["id"].(string)
	code, resp = s.register("b@x.com", "bob", "secret1")
	require.Equal(t, http.StatusCreated, code)
	bobID := resp["data"].(map[string]interface{})["id"].(string)

	token := s.login("a@x.com", "secret1")

	code, resp = s.do(http.MethodPut, "/auth/"+aliceID, token, map[string]string{"firstName": "Alice"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Alice", resp["data"].(map[string]interface{})["firstName"])

	code, _ = s.do(http.MethodPut, "/auth/"+bobID, token, map[string]string{"firstName": "Mallory"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(http.MethodPut, "/auth/"+aliceID, token, map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Username already in use", resp["message"])

	code, _ = s.do(http.MethodPut, "/auth/"+aliceID, "", map[string]string{"firstName": "Alice"})
	assert.Equal(t, http.StatusUnauthorized, code)
}
