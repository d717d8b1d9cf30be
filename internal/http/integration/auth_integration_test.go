package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/accounts"
	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
	apphttp "github.com/geocoder89/authhub/internal/http"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/repo/sqlite"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	router http.Handler
	users  *sqlite.UsersRepo
}

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		JWTSecret:           "test-secret-key",
		JWTAccessTTLMinutes: 60,
		RateLimitPerMinute:  100,
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
	}
}

func setupApp(t *testing.T, cfg config.Config) testApp {
	t.Helper()

	sdb, err := sqlite.New(filepath.Join(t.TempDir(), "authhub.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sdb.Close() })

	if err := sdb.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	users := sqlite.NewUsersRepo(sdb, prom)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())

	svc := accounts.NewService(accounts.Deps{
		Users:    users,
		Hasher:   security.NewBcryptHasher(bcrypt.MinCost),
		Tokens:   tokens,
		Log:      logger,
		Prom:     prom,
		CacheTTL: time.Second,
	})

	router := apphttp.NewRouter(logger, apphttp.Deps{
		Accounts: svc,
		Store:    users,
		Tokens:   tokens,
		Prom:     prom,
		Gatherer: reg,
	}, cfg)

	return testApp{router: router, users: users}
}

func (a testApp) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	return out
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

const aliceBody = `{"username":"alice","email":"alice@example.com","password":"password123"}`

func TestRegister_PersistsAndReturnsPublicUser(t *testing.T) {
	app := setupApp(t, testConfig())

	w := app.do(t, http.MethodPost, "/api/v1/auth/register", aliceBody, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	if strings.Contains(strings.ToLower(w.Body.String()), "password") {
		t.Fatalf("response leaks password: %s", w.Body.String())
	}

	got := decode[user.Public](t, w)
	if got.ID == "" || got.Username != "alice" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected body: %+v", got)
	}

	stored, err := app.users.GetByID(context.Background(), got.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Public() != got {
		t.Fatalf("stored %+v does not match response %+v", stored.Public(), got)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "password123" {
		t.Fatalf("password must be stored hashed, got %q", stored.PasswordHash)
	}
	if err := security.NewBcryptHasher(bcrypt.MinCost).Compare(stored.PasswordHash, "password123"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegister_MultibytePasswordWithinLimit(t *testing.T) {
	app := setupApp(t, testConfig())

	for _, tc := range []struct {
		name     string
		username string
		password string
	}{
		{"cjk", "alice", strings.Repeat("密", 30)},
		{"emoji", "bobby", strings.Repeat("🔑", 32)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			body, err := json.Marshal(map[string]string{
				"username": tc.username,
				"email":    tc.username + "@example.com",
				"password": tc.password,
			})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			w := app.do(t, http.MethodPost, "/api/v1/auth/register", string(body), "")
			if w.Code != http.StatusCreated {
				t.Fatalf("expected 201 for %d-byte password, got %d body=%s", len(tc.password), w.Code, w.Body.String())
			}

			login, err := json.Marshal(map[string]string{"email": tc.username + "@example.com", "password": tc.password})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			if w := app.do(t, http.MethodPost, "/api/v1/auth/login", string(login), ""); w.Code != http.StatusOK {
				t.Fatalf("login: expected 200, got %d body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRegister_ValidationMessages(t *testing.T) {
	app := setupApp(t, testConfig())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"all missing", `{}`, "Username is required. Email is required. Password is required"},
		{"blank values", `{"username":"  ","email":"","password":""}`, "Username is required. Email is required. Password is required"},
		{"username too short", `{"username":"ab","email":"a@b.co","password":"password123"}`, "Username must have at least 3 characters"},
		{"username too long", `{"username":"` + strings.Repeat("a", 21) + `","email":"a@b.co","password":"password123"}`, "Username must have at most 20 characters"},
		{"email wrong", `{"username":"alice","email":"alice@","password":"password123"}`, "Email is wrong"},
		{"password too short", `{"username":"alice","email":"a@b.co","password":"1234567"}`, "Password must have at least 8 characters"},
		{"password too long", `{"username":"alice","email":"a@b.co","password":"` + strings.Repeat("p", 33) + `"}`, "Password must have at most 32 characters"},
		{"mixed", `{"username":"ab","email":"nope"}`, "Username must have at least 3 characters. Email is wrong. Password is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := app.do(t, http.MethodPost, "/api/v1/auth/register", tc.body, "")
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d body=%s", w.Code, w.Body.String())
			}

			body := decode[errorBody](t, w)
			if body.Message != tc.want {
				t.Fatalf("message mismatch:\n got %q\nwant %q", body.Message, tc.want)
			}
			if body.RequestID == "" {
				t.Fatalf("expected requestId on error body")
			}
		})
	}

	page, err := app.users.List(context.Background(), user.ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("invalid signups must not be stored, found %d", len(page.Items))
	}
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	app := setupApp(t, testConfig())

	if w := app.do(t, http.MethodPost, "/api/v1/auth/register", aliceBody, ""); w.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", w.Code)
	}

	dupes := []string{
		aliceBody,
		`{"username":"alice","email":"other@example.com","password":"password123"}`,
		`{"username":"another","email":"ALICE@example.com","password":"password123"}`,
	}

	for _, body := range dupes {
		w := app.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
		if w.Code != http.StatusConflict {
			t.Fatalf("%s: expected 409, got %d body=%s", body, w.Code, w.Body.String())
		}
		if got := decode[errorBody](t, w); got.Code != "user_already_exists" {
			t.Fatalf("unexpected code %q", got.Code)
		}
	}

	page, err := app.users.List(context.Background(), user.ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected exactly one stored user, got %d", len(page.Items))
	}
}

func TestRegister_RejectsNonJSON(t *testing.T) {
	app := setupApp(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("username=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", w.Code)
	}
}

func TestLoginAndAuthenticatedUser(t *testing.T) {
	app := setupApp(t, testConfig())

	reg := app.do(t, http.MethodPost, "/api/v1/auth/register", aliceBody, "")
	if reg.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", reg.Code)
	}
	created := decode[user.Public](t, reg)

	w := app.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"alice@example.com","password":"wrong-password"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", w.Code)
	}

	w = app.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"alice@example.com","password":"password123"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	login := decode[accounts.LoginResult](t, w)
	if login.Token == "" || login.User != created {
		t.Fatalf("unexpected login result: %+v", login)
	}

	if w := app.do(t, http.MethodGet, "/api/v1/auth/authenticated-user", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}

	w = app.do(t, http.MethodGet, "/api/v1/auth/authenticated-user", "", login.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated-user: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if me := decode[user.Public](t, w); me != created {
		t.Fatalf("unexpected authenticated user: %+v", me)
	}
}

func TestUsersList_Paginates(t *testing.T) {
	app := setupApp(t, testConfig())

	for _, name := range []string{"alice", "bobby", "carol"} {
		body := `{"username":"` + name + `","email":"` + name + `@example.com","password":"password123"}`
		if w := app.do(t, http.MethodPost, "/api/v1/auth/register", body, ""); w.Code != http.StatusCreated {
			t.Fatalf("register %s: %d", name, w.Code)
		}
	}

	login := decode[accounts.LoginResult](t, app.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"password123"}`, ""))

	if w := app.do(t, http.MethodGet, "/api/v1/users", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	seen := map[string]bool{}
	cursor := ""
	for pages := 0; pages < 5; pages++ {
		path := "/api/v1/users?limit=2"
		if cursor != "" {
			path += "&cursor=" + cursor
		}

		w := app.do(t, http.MethodGet, path, "", login.Token)
		if w.Code != http.StatusOK {
			t.Fatalf("list: expected 200, got %d body=%s", w.Code, w.Body.String())
		}

		page := decode[accounts.ListResult](t, w)
		for _, u := range page.Items {
			if seen[u.ID] {
				t.Fatalf("user %s listed twice", u.ID)
			}
			seen[u.ID] = true
		}

		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	if len(seen) != 3 {
		t.Fatalf("expected 3 users across pages, got %d", len(seen))
	}
}

func TestRegister_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	app := setupApp(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, app.do(t, http.MethodPost, "/api/v1/auth/register", `{}`, "").Code)
	}

	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third request to be limited, got %v", codes)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := setupApp(t, testConfig())

	for _, path := range []string{"/healthz", "/readyz"} {
		if w := app.do(t, http.MethodGet, path, "", ""); w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}

	app.do(t, http.MethodPost, "/api/v1/auth/register", aliceBody, "")

	w := app.do(t, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
	for _, want := range []string{"authhub_http_requests_total", `authhub_auth_outcomes_total{op="register",result="ok"} 1`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
