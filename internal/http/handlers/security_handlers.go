package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// SecurityHandlers exposes the security event trail of the caller's organization
type SecurityHandlers struct {
	security domain.SecurityService
	logger   *zap.Logger
}

// NewSecurityHandlers creates new security handlers
func NewSecurityHandlers(security domain.SecurityService, logger *zap.Logger) *SecurityHandlers {
	return &SecurityHandlers{
		security: security,
		logger:   logger.With(zap.String("component", "security_handlers")),
	}
}

// Events lists security events filtered by query parameters
func (h *SecurityHandlers) Events(c *gin.Context) {
	_, orgID, ok := currentUser(c)
	if !ok {
		return
	}

	query, err := parseEventQuery(c)
	if err != nil {
		bindError(c, err)
		return
	}
	query.OrganizationID = orgID

	events, err := h.security.ListEvents(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if events == nil {
		events = []*domain.SecurityEvent{}
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}

// Dashboard returns the 24h metrics with open high-risk counts
func (h *SecurityHandlers) Dashboard(c *gin.Context) {
	_, orgID, ok := currentUser(c)
	if !ok {
		return
	}

	dashboard, err := h.security.GetDashboard(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dashboard})
}

// Metrics aggregates events over ?timeRange=1h|24h|7d|30d
func (h *SecurityHandlers) Metrics(c *gin.Context) {
	_, orgID, ok := currentUser(c)
	if !ok {
		return
	}

	metrics, err := h.security.GetSecurityMetrics(c.Request.Context(), orgID, c.DefaultQuery("timeRange", "24h"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": metrics})
}

// Resolve marks an event of the caller's organization as handled
func (h *SecurityHandlers) Resolve(c *gin.Context) {
	userID, orgID, ok := currentUser(c)
	if !ok {
		return
	}

	eventID := c.Param("id")
	if err := h.security.ResolveEvent(c.Request.Context(), orgID, eventID, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": eventID, "resolved": true}})
}

func parseEventQuery(c *gin.Context) (domain.SecurityEventQuery, error) {
	q := domain.SecurityEventQuery{
		UserID:    c.Query("userId"),
		IPAddress: c.Query("ipAddress"),
	}

	for _, t := range splitList(c.Query("type")) {
		q.Types = append(q.Types, domain.SecurityEventType(strings.ToUpper(t)))
	}
	for _, s := range splitList(c.Query("severity")) {
		q.Severities = append(q.Severities, domain.Severity(strings.ToUpper(s)))
	}

	if v := c.Query("resolved"); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			return q, fmt.Errorf("invalid resolved: %q", v)
		}
		q.Resolved = &resolved
	}
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, fmt.Errorf("invalid since: %q", v)
		}
		q.Since = t
	}
	if v := c.Query("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, fmt.Errorf("invalid until: %q", v)
		}
		q.Until = t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("invalid limit: %q", v)
		}
		q.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("invalid offset: %q", v)
		}
		q.Offset = n
	}
	return q, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
