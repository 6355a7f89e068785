package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"oraclelab/internal/auth"
	"oraclelab/internal/lab"
	"oraclelab/internal/models"
)

var errNotFound = errors.New("not found")

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]models.User
	sessions map[string]models.Session
	runs     []models.AttackRun
	audit    []string
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	hash, err := auth.HashPassword("operator-pw")
	require.NoError(t, err)
	s := &fakeStore{users: map[string]models.User{}, sessions: map[string]models.Session{}}
	s.users["op"] = models.User{ID: "op", Email: "op@lab.test", PasswordHash: hash, IsActive: true, Roles: []models.Role{{Name: models.RoleOperator}}}
	s.users["admin"] = models.User{ID: "admin", Email: "admin@lab.test", PasswordHash: hash, IsActive: true, Roles: []models.Role{{Name: models.RoleAdministrator}}}
	s.users["off"] = models.User{ID: "off", Email: "off@lab.test", PasswordHash: hash, IsActive: false}
	return s
}

func (s *fakeStore) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, errNotFound
}

func (s *fakeStore) FindUser(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, errNotFound
	}
	return u, nil
}

func (s *fakeStore) ListUsers(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *fakeStore) CreateUser(_ context.Context, email, hash string, roles []string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{ID: uuid.NewString(), Email: email, PasswordHash: hash, IsActive: true}
	for _, r := range roles {
		u.Roles = append(u.Roles, models.Role{Name: r})
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeStore) UpdateUser(_ context.Context, id string, p models.UserPatch) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, errNotFound
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Roles != nil {
		u.Roles = nil
		for _, r := range p.Roles {
			u.Roles = append(u.Roles, models.Role{Name: r})
		}
	}
	s.users[id] = u
	return u, nil
}

func (s *fakeStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errNotFound
	}
	delete(s.users, id)
	for jti, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, jti)
		}
	}
	return nil
}

func (s *fakeStore) CreateSession(_ context.Context, sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.JTI] = sess
	return nil
}

func (s *fakeStore) FindSession(_ context.Context, jti string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[jti]
	if !ok {
		return models.Session{}, errNotFound
	}
	return sess, nil
}

func (s *fakeStore) RevokeSession(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[jti]
	if !ok || sess.RevokedAt != nil {
		return errNotFound
	}
	now := time.Now()
	sess.RevokedAt = &now
	s.sessions[jti] = sess
	return nil
}

func (s *fakeStore) RevokeUserSessions(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for jti, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			sess.RevokedAt = &now
			s.sessions[jti] = sess
		}
	}
	return nil
}

func (s *fakeStore) RecordRun(_ context.Context, run *models.AttackRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

func (s *fakeStore) ListRuns(_ context.Context, userID string, _ int) ([]models.AttackRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AttackRun{}
	for _, r := range s.runs {
		if userID == "" || r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) Audit(_ context.Context, _ string, action string, _ map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, action)
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newTestServer(t *testing.T) (http.Handler, *fakeStore) {
	st := newFakeStore(t)
	h := NewRouter(Deps{
		Store:         st,
		Labs:          lab.NewRegistry(nil),
		Signer:        auth.NewSigner("router-test", time.Hour),
		AttackWorkers: 2,
		Log:           zap.NewNop().Sugar(),
	})
	return h, st
}

func login(t *testing.T, h http.Handler, email string) *client {
	t.Helper()
	c := &client{t: t, h: h}
	rec := c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": "operator-pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c.token = decode[map[string]any](t, rec)["token"].(string)
	return c
}

func TestLogin(t *testing.T) {
	h, _ := newTestServer(t)
	c := &client{t: t, h: h}
	tests := []struct {
		name  string
		email string
		pw    string
		want  int
	}{
		{"ok", "op@lab.test", "operator-pw", http.StatusOK},
		{"case insensitive", "OP@lab.test", "operator-pw", http.StatusOK},
		{"wrong password", "op@lab.test", "nope-nope", http.StatusUnauthorized},
		{"unknown user", "who@lab.test", "operator-pw", http.StatusUnauthorized},
		{"inactive", "off@lab.test", "operator-pw", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": tt.email, "password": tt.pw})
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLabFlow(t *testing.T) {
	h, st := newTestServer(t)
	op := login(t, h, "op@lab.test")

	rec := op.do(http.MethodGet, "/v1/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "op@lab.test", decode[map[string]any](t, rec)["email"])

	rec = op.do(http.MethodPost, "/v1/labs", map[string]string{"kind": "ecb-suffix", "algorithm": "SEED"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	info := decode[lab.Info](t, rec)
	assert.Equal(t, 16, info.BlockSize)
	labPath := "/v1/labs/" + info.ID.String()

	rec = op.do(http.MethodPost, labPath+"/query", map[string]string{"op": "encrypt", "input_hex": "41 41 41"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[map[string]any](t, rec)["output_hex"])

	rec = op.do(http.MethodPost, labPath+"/query", map[string]string{"op": "decrypt"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = op.do(http.MethodPost, labPath+"/attack", map[string]int{"workers": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[lab.Result](t, rec)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.RecoveredHex)

	rec = op.do(http.MethodPost, labPath+"/attack", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[lab.Result](t, rec).Workers)

	rec = op.do(http.MethodPost, labPath+"/attack", map[string]int{"workers": 1000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = op.do(http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.AttackRun](t, rec), 2)
	assert.Contains(t, st.audit, "lab.attack")

	rec = op.do(http.MethodGet, "/v1/labs", nil)
	assert.Len(t, decode[[]lab.Info](t, rec), 1)
}

func TestLabAccess(t *testing.T) {
	h, _ := newTestServer(t)
	op := login(t, h, "op@lab.test")
	admin := login(t, h, "admin@lab.test")

	rec := admin.do(http.MethodPost, "/v1/labs", map[string]string{"kind": "cbc-padding"})
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/v1/labs/" + decode[lab.Info](t, rec).ID.String()

	assert.Equal(t, http.StatusNotFound, op.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusOK, admin.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusBadRequest, op.do(http.MethodGet, "/v1/labs/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, op.do(http.MethodGet, "/v1/labs/"+uuid.NewString(), nil).Code)

	rec = op.do(http.MethodPost, "/v1/labs", map[string]string{"kind": "rc4-bias"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = op.do(http.MethodPost, "/v1/labs", map[string]string{"kind": "cbc-bitflip", "algorithm": "HIGHT"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusForbidden, op.do(http.MethodGet, "/v1/admin/runs", nil).Code)
	assert.Equal(t, http.StatusOK, admin.do(http.MethodGet, "/v1/admin/runs", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, (&client{t: t, h: h}).do(http.MethodGet, "/v1/me", nil).Code)
}

func TestAdminCreatesOperator(t *testing.T) {
	h, _ := newTestServer(t)
	admin := login(t, h, "admin@lab.test")

	rec := admin.do(http.MethodPost, "/v1/admin/users", map[string]string{"email": "New@Lab.test", "password": "operator-pw"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []any{models.RoleOperator}, decode[map[string]any](t, rec)["roles"])

	rec = admin.do(http.MethodPost, "/v1/admin/users", map[string]string{"email": "weak@lab.test", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	login(t, h, "new@lab.test")
}

func TestDeleteLab(t *testing.T) {
	h, st := newTestServer(t)
	op := login(t, h, "op@lab.test")
	other := login(t, h, "op@lab.test")
	admin := login(t, h, "admin@lab.test")

	rec := admin.do(http.MethodPost, "/v1/labs", map[string]string{"kind": "ctr-edit"})
	require.Equal(t, http.StatusCreated, rec.Code)
	adminLab := "/v1/labs/" + decode[lab.Info](t, rec).ID.String()
	assert.Equal(t, http.StatusNotFound, op.do(http.MethodDelete, adminLab, nil).Code)
	assert.Equal(t, http.StatusOK, admin.do(http.MethodGet, adminLab, nil).Code)

	rec = op.do(http.MethodPost, "/v1/labs", map[string]string{"kind": "ecb-suffix"})
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/v1/labs/" + decode[lab.Info](t, rec).ID.String()

	rec = other.do(http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode[map[string]any](t, rec)["deleted"])
	assert.Contains(t, st.audit, "lab.delete")

	assert.Equal(t, http.StatusNotFound, op.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, op.do(http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, op.do(http.MethodPost, path+"/attack", nil).Code)
	assert.Empty(t, decode[[]lab.Info](t, op.do(http.MethodGet, "/v1/labs", nil)))

	assert.Equal(t, http.StatusOK, admin.do(http.MethodDelete, adminLab, nil).Code)
}

func TestAdminUpdatesAndDeletesUsers(t *testing.T) {
	h, st := newTestServer(t)
	admin := login(t, h, "admin@lab.test")
	op := login(t, h, "op@lab.test")

	rec := admin.do(http.MethodPatch, "/v1/admin/users/op", map[string]any{"roles": []string{models.RoleOperator, models.RoleAdministrator}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []any{models.RoleOperator, models.RoleAdministrator}, decode[map[string]any](t, rec)["roles"])
	assert.Equal(t, http.StatusOK, op.do(http.MethodGet, "/v1/me", nil).Code)

	assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodPatch, "/v1/admin/users/op", map[string]any{"password": "short"}).Code)
	assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodPatch, "/v1/admin/users/op", map[string]any{"email": " "}).Code)
	assert.Equal(t, http.StatusNotFound, admin.do(http.MethodPatch, "/v1/admin/users/ghost", map[string]any{}).Code)

	rec = admin.do(http.MethodPatch, "/v1/admin/users/op", map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, op.do(http.MethodGet, "/v1/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, (&client{t: t, h: h}).do(http.MethodPost, "/v1/auth/login",
		map[string]string{"email": "op@lab.test", "password": "operator-pw"}).Code)

	rec = admin.do(http.MethodPost, "/v1/admin/users", map[string]string{"email": "second@lab.test", "password": "operator-pw"})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := login(t, h, "second@lab.test")
	assert.Equal(t, http.StatusForbidden, second.do(http.MethodDelete, "/v1/admin/users/op", nil).Code)
	assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodDelete, "/v1/admin/users/admin", nil).Code)
	rec = admin.do(http.MethodDelete, "/v1/admin/users/op", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, admin.do(http.MethodDelete, "/v1/admin/users/op", nil).Code)
	assert.Contains(t, st.audit, "admin.user.update")
	assert.Contains(t, st.audit, "admin.user.delete")
}

func TestChangePassword(t *testing.T) {
	h, st := newTestServer(t)
	op := login(t, h, "op@lab.test")

	rec := op.do(http.MethodPost, "/v1/auth/password", map[string]string{"current_password": "wrong-pw", "new_password": "fresh-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = op.do(http.MethodPost, "/v1/auth/password", map[string]string{"current_password": "operator-pw", "new_password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = op.do(http.MethodPost, "/v1/auth/password", map[string]string{"current_password": "operator-pw", "new_password": "fresh-password"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusUnauthorized, op.do(http.MethodGet, "/v1/me", nil).Code)
	assert.Contains(t, st.audit, "auth.password")

	u, err := st.FindUser(context.Background(), "op")
	require.NoError(t, err)
	assert.NoError(t, auth.CheckPassword(u.PasswordHash, "fresh-password"))
}

func TestLogout(t *testing.T) {
	h, _ := newTestServer(t)
	op := login(t, h, "op@lab.test")

	assert.Equal(t, http.StatusNoContent, op.do(http.MethodPost, "/v1/auth/logout", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, op.do(http.MethodGet, "/v1/me", nil).Code)
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t)
	assert.Equal(t, http.StatusOK, (&client{t: t, h: h}).do(http.MethodGet, "/healthz", nil).Code)
}
