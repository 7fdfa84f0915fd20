package workflow

import (
	"fmt"

	"clientportal/internal/apperrors"
)

var ErrInvalidStatus = fmt.Errorf("%w: invalid status", apperrors.ErrValidation)

type ActivityAction string

const (
	ActionCreated        ActivityAction = "created"
	ActionStatusChange   ActivityAction = "status_change"
	ActionMaterialUpload ActivityAction = "material_upload"
	ActionTicketOpened   ActivityAction = "ticket_opened"
	ActionMessage        ActivityAction = "message"
	ActionDeadline       ActivityAction = "deadline"
	ActionOther          ActivityAction = "other"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// ParseRole reads a stored role. Anything other than admin is a client.
func ParseRole(raw string) Role {
	if Role(raw) == RoleAdmin {
		return RoleAdmin
	}
	return RoleClient
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

// MenuItem is one entry of the dashboard navigation.
type MenuItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

var (
	clientMenu = []MenuItem{
		{Key: "dashboard", Label: "Painel", Path: "/dashboard"},
		{Key: "tickets", Label: "Solicitações", Path: "/dashboard/tickets"},
	}
	adminMenu = []MenuItem{
		{Key: "admin", Label: "Admin", Path: "/dashboard/admin"},
		{Key: "clients", Label: "Clientes", Path: "/dashboard/clients"},
	}
)

// Menu returns the navigation entries visible to a role. Hiding entries is
// cosmetic; access is enforced on every request.
func Menu(role Role) []MenuItem {
	items := append([]MenuItem{}, clientMenu...)
	if role.IsAdmin() {
		items = append(items, adminMenu...)
	}
	return items
}

// StatusChangeDescription is the timeline text written when a project moves.
func StatusChangeDescription(to ProjectStatus) string {
	return fmt.Sprintf("Status alterado para %s", ProjectStatusLabel(string(to)))
}
