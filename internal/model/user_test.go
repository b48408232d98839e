package model

import "testing"

func TestActorCan(t *testing.T) {
	tests := []struct {
		role     string
		action   Action
		expected bool
	}{
		{RoleAdmin, ActionDecideRecord, true},
		{RoleAdmin, ActionManageUsers, true},
		{RoleAdmin, ActionRequestAdjustment, true},
		{RoleCoordinator, ActionRequestAdjustment, true},
		{RoleCoordinator, ActionManageItems, true},
		{RoleCoordinator, ActionManageServices, true},
		{RoleCoordinator, ActionDecideRecord, false},
		{RoleCoordinator, ActionManageUsers, false},
		{RoleMonitor, ActionViewInventory, true},
		{RoleMonitor, ActionRequestAdjustment, false},
		{RoleMonitor, ActionManageItems, false},
		{RoleNone, ActionViewInventory, false},
		// Unknown roles fail-closed.
		{"unknown", ActionViewInventory, false},
		{"", ActionViewInventory, false},
	}

	for _, tt := range tests {
		got := Actor{Role: tt.role}.Can(tt.action)
		if got != tt.expected {
			t.Errorf("Actor{Role: %q}.Can(%q) = %v, want %v", tt.role, tt.action, got, tt.expected)
		}
	}
}

func TestActorCanAccess(t *testing.T) {
	tests := []struct {
		role     string
		access   string
		block    string
		expected bool
	}{
		{RoleAdmin, AccessNone, BlockHead, true},
		{RoleAdmin, AccessNone, "annex", false},
		{RoleCoordinator, AccessAll, BlockHead, true},
		{RoleCoordinator, AccessAll, BlockLocal, true},
		{RoleCoordinator, BlockHead, BlockHead, true},
		{RoleCoordinator, BlockHead, BlockLocal, false},
		{RoleMonitor, BlockLocal, BlockLocal, true},
		{RoleMonitor, AccessNone, BlockLocal, false},
		{RoleNone, AccessAll, "", false},
	}

	for _, tt := range tests {
		got := Actor{Role: tt.role, Block: tt.access}.CanAccess(tt.block)
		if got != tt.expected {
			t.Errorf("Actor{%q, %q}.CanAccess(%q) = %v, want %v", tt.role, tt.access, tt.block, got, tt.expected)
		}
	}
}

func TestCapabilitiesIsACopy(t *testing.T) {
	a := Actor{Role: RoleMonitor}
	caps := a.Capabilities()
	if len(caps) != 1 {
		t.Fatalf("expected 1 capability for monitor, got %d", len(caps))
	}
	caps[0] = ActionManageUsers
	if a.Can(ActionManageUsers) {
		t.Error("mutating the returned slice changed the role's capabilities")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestValidRoleAndBlock(t *testing.T) {
	for _, r := range []string{RoleAdmin, RoleCoordinator, RoleMonitor, RoleNone} {
		if !ValidRole(r) {
			t.Errorf("expected %q to be a valid role", r)
		}
	}
	if ValidRole("manager") {
		t.Error("expected 'manager' to be rejected")
	}
	for _, b := range []string{BlockHead, BlockLocal, AccessAll, AccessNone} {
		if !ValidAccessBlock(b) {
			t.Errorf("expected %q to be a valid access block", b)
		}
	}
	if ValidBlock(AccessAll) {
		t.Error("'all' is an access level, not an inventory block")
	}
}
