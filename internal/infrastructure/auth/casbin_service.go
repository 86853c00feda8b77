package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/you/crmauth/domain"
	"gorm.io/gorm"
)

// RBACModel is used when no model file is configured. Subjects are "role_<ROLE>",
// objects are gin route patterns and actions are method regexes.
const RBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// RoleSubject is the casbin subject of a CRM role
func RoleSubject(role domain.Role) string {
	return role.Subject()
}

// DefaultPolicies grants managers read access to the security reports and admins
// the mutating security and user-management routes.
func DefaultPolicies() [][]string {
	return [][]string{
		{RoleSubject(domain.RoleManager), "/auth/security/*", "GET"},
		{RoleSubject(domain.RoleAdmin), "/auth/security/events/:id/resolve", "PUT"},
		{RoleSubject(domain.RoleAdmin), "/auth/users/:id/deactivate", "POST"},
		{RoleSubject(domain.RoleAdmin), "/auth/users/:id/mfa/reset", "POST"},
		{RoleSubject(domain.RoleAdmin), "/admin/policies", "(GET)|(POST)|(DELETE)"},
	}
}

// DefaultRoleInheritance lets admins do everything managers can
func DefaultRoleInheritance() [][]string {
	return [][]string{
		{RoleSubject(domain.RoleAdmin), RoleSubject(domain.RoleManager)},
	}
}

type CasbinService struct{ E *casbin.Enforcer }

// NewCasbinService builds the enforcer. With a nil db policies live only in memory;
// otherwise they are persisted through the gorm adapter. An empty modelPath uses RBACModel.
func NewCasbinService(db *gorm.DB, modelPath string) (*CasbinService, error) {
	m, err := loadModel(modelPath)
	if err != nil {
		return nil, err
	}

	var E *casbin.Enforcer
	if db == nil {
		E, err = casbin.NewEnforcer(m)
	} else {
		adp, adpErr := gormadapter.NewAdapterByDB(db)
		if adpErr != nil {
			return nil, fmt.Errorf("failed to create casbin adapter: %w", adpErr)
		}
		E, err = casbin.NewEnforcer(m, adp)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if db != nil {
		if err := E.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("failed to load casbin policy: %w", err)
		}
	}
	if err := seed(E); err != nil {
		return nil, err
	}
	return &CasbinService{E}, nil
}

func loadModel(modelPath string) (model.Model, error) {
	if modelPath == "" {
		return model.NewModelFromString(RBACModel)
	}
	m, err := model.NewModelFromFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model %s: %w", modelPath, err)
	}
	return m, nil
}

// seed adds the default rules that are missing; existing custom rules are kept
func seed(E *casbin.Enforcer) error {
	for _, p := range DefaultPolicies() {
		has, err := E.HasPolicy(p[0], p[1], p[2])
		if err != nil {
			return fmt.Errorf("failed to check casbin policy: %w", err)
		}
		if !has {
			if _, err := E.AddPolicy(p[0], p[1], p[2]); err != nil {
				return fmt.Errorf("failed to seed casbin policy: %w", err)
			}
		}
	}
	for _, g := range DefaultRoleInheritance() {
		has, err := E.HasGroupingPolicy(g[0], g[1])
		if err != nil {
			return fmt.Errorf("failed to check casbin grouping: %w", err)
		}
		if !has {
			if _, err := E.AddGroupingPolicy(g[0], g[1]); err != nil {
				return fmt.Errorf("failed to seed casbin grouping: %w", err)
			}
		}
	}
	return nil
}
