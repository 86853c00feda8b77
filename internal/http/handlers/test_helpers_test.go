package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/you/crmauth/internal/http/middleware"
)

// identity is the authenticated caller injected in place of the auth middleware
type identity struct {
	userID    string
	role      string
	orgID     string
	sessionID string
}

var defaultIdentity = identity{userID: "user-1", role: "USER", orgID: "org-1", sessionID: "session-1"}

// newTestRouter returns a gin engine whose requests carry id, or no identity when id is nil
func newTestRouter(t *testing.T, id *identity) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	if id != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserID, id.userID)
			c.Set(middleware.ContextUserRole, id.role)
			c.Set(middleware.ContextOrganizationID, id.orgID)
			c.Set(middleware.ContextSessionID, id.sessionID)
			c.Next()
		})
	}
	return r
}

// doJSON sends body as JSON and decodes the response object
func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "handler-test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

// data returns the "data" object of a response
func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()

	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return d
}
