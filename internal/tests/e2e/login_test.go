package e2e

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/crmauth/domain"
	"github.com/you/crmauth/internal/config"
)

func TestLoginFailures(t *testing.T) {
	ts := NewTestServer(t, nil)
	user := ts.RegisterUser(t, "org-login", "USER")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "missing@example.com", testPassword},
		{"wrong password", user.Email, "Wrong!Passw0rd"},
		{"email is case insensitive but password is not", strings.ToUpper(user.Email), strings.ToLower(testPassword)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.Do(t, http.MethodPost, "/auth/login", "", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			assert.Equal(t, http.StatusUnauthorized, resp.Status, resp.String())
			assert.Equal(t, "Invalid credentials", resp.Error())
		})
	}

	t.Run("upper-case email logs in", func(t *testing.T) {
		resp := ts.Do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email":    strings.ToUpper(user.Email),
			"password": testPassword,
		})
		assert.Equal(t, http.StatusOK, resp.Status, resp.String())
	})

	t.Run("unknown email is recorded against the unknown organization", func(t *testing.T) {
		events, err := ts.Container.SecuritySvc.ListEvents(context.Background(), domain.SecurityEventQuery{
			OrganizationID: domain.UnknownOrganization,
			Types:          []domain.SecurityEventType{domain.LoginFailedEvent},
		})
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})
}

func TestAccountLockout(t *testing.T) {
	ts := NewTestServer(t, nil)
	user := ts.RegisterUser(t, "org-lock", "USER")
	manager := ts.RegisterUser(t, "org-lock", "MANAGER")

	for i := 0; i < ts.Config.LockoutMaxAttempts; i++ {
		resp := ts.Do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email":    user.Email,
			"password": "Wrong!Passw0rd",
		})
		require.Equal(t, http.StatusUnauthorized, resp.Status, "attempt %d: %s", i+1, resp.String())
	}

	t.Run("correct password is refused while locked", func(t *testing.T) {
		resp := ts.Login(t, user)
		assert.Equal(t, http.StatusUnauthorized, resp.Status, resp.String())
		assert.Equal(t, "Invalid credentials", resp.Error())
	})

	t.Run("user is notified once by sms and email", func(t *testing.T) {
		require.Len(t, ts.Notifier.SMS, 1)
		assert.Equal(t, "+15551234567", ts.Notifier.SMS[0].To)
		require.Len(t, ts.Notifier.Emails, 1)
		assert.Equal(t, user.Email, ts.Notifier.Emails[0].To)
	})

	t.Run("manager sees the trail in the tenant event log", func(t *testing.T) {
		failed := ts.Do(t, http.MethodGet, "/auth/security/events?type=LOGIN_FAILED&userId="+user.ID, manager.AccessToken, nil)
		require.Equal(t, http.StatusOK, failed.Status, failed.String())
		assert.Len(t, failed.Body["data"].([]interface{}), ts.Config.LockoutMaxAttempts)

		locked := ts.Do(t, http.MethodGet, "/auth/security/events?type=ACCOUNT_LOCKED", manager.AccessToken, nil)
		require.Equal(t, http.StatusOK, locked.Status, locked.String())
		events := locked.Body["data"].([]interface{})
		require.Len(t, events, 1)
		assert.Equal(t, "HIGH", events[0].(map[string]interface{})["severity"])

		denied := ts.Do(t, http.MethodGet, "/auth/security/events?type=UNAUTHORIZED_ACCESS&userId="+user.ID, manager.AccessToken, nil)
		require.Equal(t, http.StatusOK, denied.Status, denied.String())
		assert.Len(t, denied.Body["data"].([]interface{}), 1)
	})

	t.Run("password reset lifts the lock", func(t *testing.T) {
		resp := ts.Do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": user.Email})
		require.Equal(t, http.StatusAccepted, resp.Status, resp.String())

		last := ts.Notifier.Emails[len(ts.Notifier.Emails)-1]
		token := resetTokenPattern.FindString(last.Body)
		require.NotEmpty(t, token)

		user.Password = "Unl0cked!Password"
		reset := ts.Do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{"token": token, "password": user.Password})
		require.Equal(t, http.StatusOK, reset.Status, reset.String())

		login := ts.Login(t, user)
		assert.Equal(t, http.StatusOK, login.Status, login.String())
	})
}

func TestLoginRateLimit(t *testing.T) {
	ts := NewTestServer(t, func(cfg *config.Config) {
		cfg.RateLimitRequests = 3
	})
	user := ts.RegisterUser(t, "org-rate", "USER")

	for i := 0; i < 3; i++ {
		resp := ts.Login(t, user)
		require.Equal(t, http.StatusOK, resp.Status, "request %d: %s", i+1, resp.String())
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
	}

	resp := ts.Login(t, user)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status, resp.String())
	assert.Equal(t, "Too many requests", resp.Error())
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	t.Run("refresh is not limited", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			resp := ts.Do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": user.RefreshToken})
			assert.Equal(t, http.StatusOK, resp.Status, resp.String())
		}
	})

	t.Run("window expiry restores access", func(t *testing.T) {
		ts.Redis.FastForward(ts.Config.RateLimitWindow)
		resp := ts.Login(t, user)
		assert.Equal(t, http.StatusOK, resp.Status, resp.String())
	})
}
