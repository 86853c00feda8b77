package e2e

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPassword = "Test123!@#Secure"

var emailSeq atomic.Int64

// generateTestEmail returns a unique address per call
func generateTestEmail() string {
	return fmt.Sprintf("e2e-user-%d@example.com", emailSeq.Add(1))
}

// TestUser is an account registered through the API
type TestUser struct {
	ID           string
	Email        string
	Password     string
	Role         string
	Organization string
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// RegisterUser registers an account in org with the given role
func (ts *TestServer) RegisterUser(t *testing.T, org, role string) *TestUser {
	t.Helper()

	email := generateTestEmail()
	resp := ts.Do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":          email,
		"password":       testPassword,
		"firstName":      "E2E",
		"lastName":       role,
		"phone":          "+15551234567",
		"organizationId": org,
		"role":           role,
	})
	require.Equal(t, http.StatusCreated, resp.Status, resp.String())

	d := resp.Data()
	user := d["user"].(map[string]interface{})
	return &TestUser{
		ID:           user["id"].(string),
		Email:        email,
		Password:     testPassword,
		Role:         role,
		Organization: org,
		AccessToken:  d["accessToken"].(string),
		RefreshToken: d["refreshToken"].(string),
		SessionID:    d["sessionId"].(string),
	}
}

// Login logs the user in again and stores the new tokens
func (ts *TestServer) Login(t *testing.T, u *TestUser) *Response {
	t.Helper()

	resp := ts.Do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    u.Email,
		"password": u.Password,
	})
	if resp.Status == http.StatusOK {
		if token, ok := resp.Data()["accessToken"].(string); ok {
			u.AccessToken = token
			u.RefreshToken = resp.Data()["refreshToken"].(string)
			u.SessionID = resp.Data()["sessionId"].(string)
		}
	}
	return resp
}
