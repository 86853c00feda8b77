package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// PolicyHandlers manages the role policies behind route authorization
type PolicyHandlers struct {
	policies domain.PolicyService
	logger   *zap.Logger
}

// NewPolicyHandlers creates new policy handlers
func NewPolicyHandlers(policies domain.PolicyService, logger *zap.Logger) *PolicyHandlers {
	return &PolicyHandlers{
		policies: policies,
		logger:   logger.With(zap.String("component", "policy_handlers")),
	}
}

type policyReq struct {
	Role string `json:"role" binding:"required"`
	Obj  string `json:"obj" binding:"required"`
	Act  string `json:"act" binding:"required"`
}

func (h *PolicyHandlers) List(c *gin.Context) {
	policies := h.policies.GetPolicies()
	if policies == nil {
		policies = [][]string{}
	}
	c.JSON(http.StatusOK, gin.H{"data": policies})
}

func (h *PolicyHandlers) Add(c *gin.Context) {
	var r policyReq
	if err := c.ShouldBindJSON(&r); err != nil {
		bindError(c, err)
		return
	}
	if err := h.policies.AddPolicy(r.Role, r.Obj, r.Act); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PolicyHandlers) Remove(c *gin.Context) {
	var r policyReq
	if err := c.ShouldBindJSON(&r); err != nil {
		bindError(c, err)
		return
	}
	if err := h.policies.RemovePolicy(r.Role, r.Obj, r.Act); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
