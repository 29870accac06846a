package rolestore_test

import (
	"testing"

	rolestore "github.com/dalemusser/civihub/internal/app/store/roles"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func hasPerm(perms []authz.Permission, want authz.Permission) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}

func TestStore_Seed_WritesFullRoleTable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	if err := store.Seed(ctx, groupID, authz.TemplateDefault); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	roles, err := store.ListByGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("roles: got %d, want 3", len(roles))
	}

	byRole := map[string][]authz.Permission{}
	for _, r := range roles {
		byRole[r.Role] = r.Permissions
	}
	for _, role := range []string{authz.RoleOrganizer, authz.RoleCommittee, authz.RoleOrdinaryMember} {
		if _, ok := byRole[role]; !ok {
			t.Errorf("missing role %q", role)
		}
	}
	if !hasPerm(byRole[authz.RoleOrdinaryMember], authz.PermSeeGroupDetails) {
		t.Error("members should see group details under the default template")
	}
}

func TestStore_SetPermissions_OrganizerKeepsProtectedSubset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	if err := store.Seed(ctx, groupID, authz.TemplateDefault); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	// Try to strip organizers down to a single permission.
	if err := store.SetPermissions(ctx, groupID, authz.RoleOrganizer, []authz.Permission{authz.PermSeeGroupDetails}); err != nil {
		t.Fatalf("SetPermissions failed: %v", err)
	}

	perms, err := store.Permissions(ctx, groupID, authz.RoleOrganizer)
	if err != nil {
		t.Fatalf("Permissions failed: %v", err)
	}
	for _, protected := range authz.ProtectedOrganizerPermissions() {
		if !hasPerm(perms, protected) {
			t.Errorf("organizer lost protected permission %q", protected)
		}
	}
}

func TestStore_SetPermissions_ReplacesOtherRoles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	if err := store.Seed(ctx, groupID, authz.TemplateDefault); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	want := []authz.Permission{authz.PermSeeGroupDetails, authz.PermAddGroupMember}
	if err := store.SetPermissions(ctx, groupID, authz.RoleCommittee, want); err != nil {
		t.Fatalf("SetPermissions failed: %v", err)
	}

	perms, err := store.Permissions(ctx, groupID, authz.RoleCommittee)
	if err != nil {
		t.Fatalf("Permissions failed: %v", err)
	}
	if len(perms) != len(want) {
		t.Errorf("perms: got %d, want %d", len(perms), len(want))
	}
	for _, p := range want {
		if !hasPerm(perms, p) {
			t.Errorf("missing permission %q", p)
		}
	}
}

func TestStore_Permissions_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Permissions(ctx, primitive.NewObjectID(), authz.RoleOrganizer)
	if err != rolestore.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
