package domain

import "sort"

type Capability string

const (
	CapTakeOrders         Capability = "take_orders"
	CapManageDay          Capability = "manage_day"
	CapCancelOrders       Capability = "cancel_orders"
	CapStationDisplay     Capability = "station_display"
	CapManageMenu         Capability = "manage_menu"
	CapViewReports        Capability = "view_reports"
	CapManageUsers        Capability = "manage_users"
	CapManageCustomers    Capability = "manage_customers"
	CapAdminPanel         Capability = "admin_panel"
	CapManagerPermissions Capability = "manager_permissions"
)

// Permissions is the capability set of one actor. It is derived once from the
// role and the manager toggles and then passed along with the actor.
type Permissions map[Capability]bool

func (p Permissions) Has(c Capability) bool {
	return p[c]
}

func (p Permissions) List() []Capability {
	out := make([]Capability, 0, len(p))
	for c, ok := range p {
		if ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func PermissionsFor(role Role, toggles ManagerPermissions) Permissions {
	p := Permissions{CapTakeOrders: true}
	switch role {
	case RoleAdmin:
		for _, c := range []Capability{
			CapManageDay, CapCancelOrders, CapStationDisplay, CapManageMenu, CapViewReports,
			CapManageUsers, CapManageCustomers, CapAdminPanel, CapManagerPermissions,
		} {
			p[c] = true
		}
	case RoleManager:
		p[CapManageDay] = true
		p[CapCancelOrders] = true
		p[CapStationDisplay] = true
		p[CapManageMenu] = toggles.CanManageMenu
		p[CapViewReports] = toggles.CanViewReports
		p[CapManageUsers] = toggles.CanManageUsers
		p[CapManageCustomers] = toggles.CanManageCustomers
		p[CapAdminPanel] = toggles.CanAccessAdminPanel
	case RoleCashier:
		p[CapManageDay] = true
	case RoleWaiter:
	default:
		return Permissions{}
	}
	return p
}
