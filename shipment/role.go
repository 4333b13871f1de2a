package shipment

import "fmt"

// Role is the acting principal's role, supplied by the upstream auth gateway
type Role string

const (
	RoleBroker    Role = "Broker"
	RoleFinance   Role = "Finance"
	RoleWarehouse Role = "Warehouse"
	RoleManager   Role = "Manager"
	RoleAdmin     Role = "Admin"
)

// ParseRole accepts the canonical spelling and lower-case forms
func ParseRole(s string) (Role, error) {
	switch s {
	case "Broker", "broker":
		return RoleBroker, nil
	case "Finance", "finance":
		return RoleFinance, nil
	case "Warehouse", "warehouse":
		return RoleWarehouse, nil
	case "Manager", "manager":
		return RoleManager, nil
	case "Admin", "admin":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is the already-authenticated identity performing an operation
type Actor struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role"`
}

func (a Actor) String() string {
	return fmt.Sprintf("%s(%s)", a.UserID, a.Role)
}

// Canonical role sets per operation
var (
	RolesDecideFees = []Role{RoleFinance}
	RolesWarehouse  = []Role{RoleWarehouse}
	RolesComplete   = []Role{RoleWarehouse, RoleManager, RoleAdmin}
	RolesAdminister = []Role{RoleAdmin, RoleManager}
	RolesDelete     = []Role{RoleAdmin}
)

// RequireRole fails with UNAUTHORIZED unless the actor holds one of roles
func RequireRole(actor Actor, op string, roles ...Role) error {
	if actor.UserID == "" {
		return Unauthorized(fmt.Sprintf("%s requires an authenticated user", op))
	}
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return Unauthorized(fmt.Sprintf("role %s may not perform %s", actor.Role, op))
}

// RequireAssignedBroker fails unless the actor is the broker assigned to s
func RequireAssignedBroker(actor Actor, op string, s *Shipment) error {
	if err := RequireRole(actor, op, RoleBroker); err != nil {
		return err
	}
	if s.Broker == nil {
		return Unauthorized(fmt.Sprintf("shipment %d has no assigned broker", s.ID))
	}
	if s.Broker.UserID != actor.UserID {
		return Unauthorized(fmt.Sprintf("broker %s is not assigned to shipment %d", actor.UserID, s.ID))
	}
	return nil
}
