package domain

import "testing"

func TestPermissionsForWaiterOnlyTakesOrders(t *testing.T) {
	p := PermissionsFor(RoleWaiter, ManagerPermissions{CanManageMenu: true})
	if !p.Has(CapTakeOrders) {
		t.Fatalf("expected waiter to take orders")
	}
	if p.Has(CapManageDay) || p.Has(CapCancelOrders) || p.Has(CapManageMenu) {
		t.Fatalf("expected waiter to have no elevated capabilities, got %v", p.List())
	}
}

func TestPermissionsForManagerFollowsToggles(t *testing.T) {
	p := PermissionsFor(RoleManager, ManagerPermissions{CanViewReports: true})
	if !p.Has(CapViewReports) {
		t.Fatalf("expected manager to view reports")
	}
	if p.Has(CapManageMenu) || p.Has(CapAdminPanel) {
		t.Fatalf("expected disabled toggles to be withheld, got %v", p.List())
	}
	if !p.Has(CapCancelOrders) || !p.Has(CapManageDay) {
		t.Fatalf("expected manager to cancel orders and manage the day")
	}
	if p.Has(CapManagerPermissions) {
		t.Fatalf("expected manager permissions to stay admin-only")
	}
}

func TestPermissionsForAdminIgnoresToggles(t *testing.T) {
	p := PermissionsFor(RoleAdmin, ManagerPermissions{})
	for _, c := range []Capability{CapManageMenu, CapManageUsers, CapAdminPanel, CapManagerPermissions} {
		if !p.Has(c) {
			t.Fatalf("expected admin to have %s", c)
		}
	}
}

func TestPermissionsForCashierCanRunDayButNotCancel(t *testing.T) {
	p := PermissionsFor(RoleCashier, ManagerPermissions{})
	if !p.Has(CapManageDay) {
		t.Fatalf("expected cashier to manage the day")
	}
	if p.Has(CapCancelOrders) {
		t.Fatalf("expected cashier not to cancel orders")
	}
}

func TestPermissionsForUnknownRoleIsEmpty(t *testing.T) {
	if got := PermissionsFor(Role("Guest"), ManagerPermissions{}); len(got) != 0 {
		t.Fatalf("expected empty permissions, got %v", got.List())
	}
}
