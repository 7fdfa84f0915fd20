// Package authz answers whether a portal role may perform an action on a
// kind of resource. Row ownership is checked separately by the SQL filters.
package authz

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"

	"clientportal/internal/apperrors"
	"clientportal/internal/workflow"
)

//go:embed model.conf
var modelConf string

//go:embed policy.csv
var policyCSV string

const (
	ResourceProject      = "project"
	ResourceTicket       = "ticket"
	ResourceMaterial     = "material"
	ResourceNotification = "notification"
	ResourceAdminPanel   = "admin_panel"

	ActionRead         = "read"
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionUpdateStatus = "update_status"
	ActionMessage      = "message"
)

// Authorizer is what the services depend on.
type Authorizer interface {
	Authorize(role workflow.Role, resource, action string) error
}

type Enforcer struct {
	enforcer *casbin.Enforcer
}

// NewEnforcer builds the enforcer in memory from the embedded model and
// policy.
func NewEnforcer() (*Enforcer, error) {
	return newEnforcer(modelConf, policyCSV)
}

func newEnforcer(modelText, policyText string) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	policies, groupings, err := parsePolicy(policyText)
	if err != nil {
		return nil, err
	}
	if len(policies) > 0 {
		if _, err := e.AddPolicies(policies); err != nil {
			return nil, fmt.Errorf("failed to load casbin policy: %w", err)
		}
	}
	if len(groupings) > 0 {
		if _, err := e.AddGroupingPolicies(groupings); err != nil {
			return nil, fmt.Errorf("failed to load casbin role links: %w", err)
		}
	}
	return &Enforcer{enforcer: e}, nil
}

// parsePolicy splits CSV policy text into "p" rules and "g" role links.
// Blank lines and # comments are skipped.
func parsePolicy(text string) (policies, groupings [][]string, err error) {
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		switch fields[0] {
		case "p":
			policies = append(policies, fields[1:])
		case "g":
			groupings = append(groupings, fields[1:])
		default:
			return nil, nil, fmt.Errorf("policy line %d: unknown rule type %q", n+1, fields[0])
		}
	}
	return policies, groupings, nil
}

// Allowed reports whether role may perform action on resource.
func (e *Enforcer) Allowed(role workflow.Role, resource, action string) (bool, error) {
	return e.enforcer.Enforce(string(role), resource, action)
}

// Authorize is Allowed as an error: ErrForbidden when denied.
func (e *Enforcer) Authorize(role workflow.Role, resource, action string) error {
	ok, err := e.Allowed(role, resource, action)
	if err != nil {
		slog.Error("authz: enforce failed", "role", role, "resource", resource, "action", action, "error", err)
		return fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", action, resource, apperrors.ErrForbidden)
	}
	return nil
}
