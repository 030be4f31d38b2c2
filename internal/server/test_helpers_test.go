package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"guidance-desk/internal/config"
	"guidance-desk/internal/db"
	"guidance-desk/internal/llm"
	"guidance-desk/internal/prescription"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "correct-horse"

func init() {
	gin.SetMode(gin.TestMode)
}

const testSolution = `{"severity":"medium","root_cause":"Exam season stress","solutions":[{"title":"Homeroom check-ins","steps":["Five minute circle"],"impact":"Earlier referrals"}],"quick_wins":["Post hotline"]}`

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// generatorStub returns canned text or an error, switchable mid-test.
type generatorStub struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (g *generatorStub) Generate(_ context.Context, _ string) (llm.Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return llm.Completion{}, g.err
	}
	return llm.Completion{Text: g.text, Provider: "stub", Model: "stub-1", InputTokens: 900, OutputTokens: 400}, nil
}

func (g *generatorStub) fail(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

type fixture struct {
	ts    *httptest.Server
	srv   *Server
	conn  *gorm.DB
	clock *testClock
	gen   *generatorStub
	users map[string]db.User
}

// 2026-10-14 is a Wednesday in ISO week 2026-W42.
var fixtureStart = time.Date(2026, time.October, 14, 10, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, openFixtureDB(t, 1))
}

// newPooledFixture lets handlers run transactions on separate connections.
func newPooledFixture(t *testing.T, conns int) *fixture {
	t.Helper()
	return newFixtureOn(t, openFixtureDB(t, conns))
}

func openFixtureDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.db")
	if conns > 1 {
		path += "?_pragma=busy_timeout(10000)"
	}
	conn, err := db.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newFixtureOn(t *testing.T, conn *gorm.DB) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.PublicFormRatePerMinute = 10
	clock := &testClock{now: fixtureStart}
	gen := &generatorStub{text: testSolution}
	svc := prescription.NewService(prescription.Options{
		Log:       prescription.NewGormLog(conn),
		Generator: gen,
		Location:  time.UTC,
		Pricing:   prescription.Pricing{InputPerMTok: decimal.NewFromInt(3), OutputPerMTok: decimal.NewFromInt(15)},
		Now:       clock.Now,
	})
	srv := New(conn, cfg, Options{Prescriptions: svc, Now: clock.Now})
	f := &fixture{
		ts:    newTestServer(t, srv.Handler()),
		srv:   srv,
		conn:  conn,
		clock: clock,
		gen:   gen,
		users: make(map[string]db.User),
	}
	f.seedUser(t, "admin", db.RoleAdmin)
	f.seedUser(t, "counselor", db.RoleCounselor)
	f.seedUser(t, "adviser", db.RoleAdviser)
	return f
}

func (f *fixture) seedUser(t *testing.T, username, role string) db.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := db.User{
		Username:     username,
		Email:        username + "@school.test",
		FullName:     "Test " + username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := f.conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	f.users[username] = user
	return user
}

func (f *fixture) login(t *testing.T, username string) string {
	t.Helper()
	resp := doRequest(t, f.ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	token, ok := body["token"].(string)
	if !ok || token == "" {
		t.Fatalf("expected token, got %#v", body["token"])
	}
	return token
}
