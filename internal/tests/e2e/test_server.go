package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/crmauth/internal/app"
	"github.com/you/crmauth/internal/config"
	"github.com/you/crmauth/internal/infrastructure/database"
	"github.com/you/crmauth/internal/mocks"
	testconfig "github.com/you/crmauth/internal/tests/config"
)

// TestServer wraps the HTTP test server with the fully wired service behind it
type TestServer struct {
	Server    *httptest.Server
	Container *app.Container
	Config    *config.Config
	DB        *gorm.DB
	Redis     *miniredis.Miniredis
	Notifier  *mocks.MockNotificationService
	Client    *http.Client
}

// NewTestServer starts the router on an in-memory SQLite database and a miniredis
// instance. configure may adjust the configuration before wiring.
func NewTestServer(t *testing.T, configure func(*config.Config)) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testconfig.NewTestConfig(t)
	if configure != nil {
		configure(cfg)
	}

	db, err := database.OpenDialector(sqlite.Open(":memory:"), logger.Silent)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	notifier := mocks.NewMockNotificationService()
	container, err := app.NewContainerWithStores(cfg, db, rdb, zap.NewNop(), app.WithNotifier(notifier))
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}

	ts := &TestServer{
		Server:    httptest.NewServer(container.Router()),
		Container: container,
		Config:    cfg,
		DB:        db,
		Redis:     mr,
		Notifier:  notifier,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}

	t.Cleanup(func() {
		ts.Server.Close()
		container.Close()
	})
	return ts
}

// URL returns the full URL for a given path
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

// Response is a decoded JSON response
type Response struct {
	Status int
	Header http.Header
	Body   map[string]interface{}
}

// Data returns the "data" object of the response
func (r *Response) Data() map[string]interface{} {
	d, _ := r.Body["data"].(map[string]interface{})
	return d
}

// Error returns the "error" message of the response
func (r *Response) Error() string {
	e, _ := r.Body["error"].(string)
	return e
}

// Do sends a JSON request, optionally authenticated with a bearer token
func (ts *TestServer) Do(t *testing.T, method, path, token string, body interface{}) *Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL(path), reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "crmauth-e2e")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	out := &Response{Status: resp.StatusCode, Header: resp.Header}
	if len(raw) > 0 && json.Valid(raw) {
		if err := json.Unmarshal(raw, &out.Body); err != nil {
			t.Fatalf("Failed to decode %s: %v", raw, err)
		}
	}
	return out
}

// String renders the response for assertion messages
func (r *Response) String() string {
	return fmt.Sprintf("%d %v", r.Status, r.Body)
}
