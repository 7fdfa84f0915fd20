package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientportal/internal/apperrors"
	"clientportal/internal/workflow"
)

func TestPolicy(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	cases := []struct {
		role     workflow.Role
		resource string
		action   string
		allowed  bool
	}{
		{workflow.RoleAdmin, ResourceProject, ActionUpdateStatus, true},
		{workflow.RoleAdmin, ResourceProject, ActionCreate, true},
		{workflow.RoleAdmin, ResourceAdminPanel, ActionRead, true},
		{workflow.RoleAdmin, ResourceTicket, ActionUpdateStatus, true},
		{workflow.RoleClient, ResourceProject, ActionRead, true},
		{workflow.RoleClient, ResourceProject, ActionUpdateStatus, false},
		{workflow.RoleClient, ResourceProject, ActionCreate, false},
		{workflow.RoleClient, ResourceTicket, ActionCreate, true},
		{workflow.RoleClient, ResourceTicket, ActionMessage, true},
		{workflow.RoleClient, ResourceTicket, ActionUpdateStatus, false},
		{workflow.RoleClient, ResourceMaterial, ActionCreate, true},
		{workflow.RoleClient, ResourceNotification, ActionUpdate, true},
		{workflow.RoleClient, ResourceAdminPanel, ActionRead, false},
		{workflow.Role("guest"), ResourceProject, ActionRead, false},
	}
	for _, tc := range cases {
		ok, err := e.Allowed(tc.role, tc.resource, tc.action)
		require.NoError(t, err)
		assert.Equal(t, tc.allowed, ok, "%s %s %s", tc.role, tc.resource, tc.action)
	}
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	assert.NoError(t, e.Authorize(workflow.RoleAdmin, ResourceProject, ActionUpdateStatus))
	err = e.Authorize(workflow.RoleClient, ResourceProject, ActionUpdateStatus)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestParsePolicy(t *testing.T) {
	policies, groupings, err := parsePolicy("# roles\np, admin, project, *\n\n  g, alice, admin  \n")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"admin", "project", "*"}}, policies)
	assert.Equal(t, [][]string{{"alice", "admin"}}, groupings)

	_, _, err = parsePolicy("p, admin, project, *\nx, admin, project")
	assert.ErrorContains(t, err, "policy line 2")
}

func TestEnforcerLoadsRoleLinksInMemory(t *testing.T) {
	const rbac = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`
	e, err := newEnforcer(rbac, "p, admin, project, read\ng, manager, admin\n")
	require.NoError(t, err)

	ok, err := e.Allowed(workflow.Role("manager"), ResourceProject, ActionRead)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Allowed(workflow.RoleClient, ResourceProject, ActionRead)
	require.NoError(t, err)
	assert.False(t, ok)
}
