package groups_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/civihub/internal/app/broker"
	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/app/features/groups"
	"github.com/dalemusser/civihub/internal/app/jointoken"
	"github.com/dalemusser/civihub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/civihub/internal/app/quota"
	accountstore "github.com/dalemusser/civihub/internal/app/store/accounts"
	"github.com/dalemusser/civihub/internal/app/store/audit"
	groupstore "github.com/dalemusser/civihub/internal/app/store/groups"
	meetingstore "github.com/dalemusser/civihub/internal/app/store/meetings"
	membershipstore "github.com/dalemusser/civihub/internal/app/store/memberships"
	"github.com/dalemusser/civihub/internal/app/store/outbox"
	rolestore "github.com/dalemusser/civihub/internal/app/store/roles"
	userstore "github.com/dalemusser/civihub/internal/app/store/users"
	"github.com/dalemusser/civihub/internal/app/system/auth"
	"github.com/dalemusser/civihub/internal/app/system/txn"
	"github.com/dalemusser/civihub/internal/domain/models"
	"github.com/dalemusser/civihub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*groups.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()

	groupsStore := groupstore.New(db)
	members := membershipstore.New(db)
	users := userstore.New(db)
	roles := rolestore.New(db)
	meetings := meetingstore.New(db)
	accounts := accountstore.New(db)
	auditStore := audit.New(db)
	outboxStore := outbox.New(db)

	b := broker.New(broker.Deps{
		Groups:   groupsStore,
		Members:  members,
		Users:    users,
		Roles:    roles,
		Meetings: meetings,
		Perms:    grouppolicy.New(members, roles, users),
		Quota:    quota.New(accounts, members, quota.Config{LimitEnabled: true, FreeTierLimit: 100}),
		Tokens:   jointoken.New(nil),
		Dispatch: dispatch.New(auditStore, outboxStore, log),
		Txn:      txn.NewRunner(db, log),
		Log:      log,
	}, broker.Config{})

	return groups.NewHandler(b, groupsStore, auditStore, log), testutil.NewFixtures(t, db)
}

func asUser(r *http.Request, u models.User) *http.Request {
	role := "user"
	if u.SystemRole != "" {
		role = u.SystemRole
	}
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:   u.ID.Hex(),
		Name: u.FullName,
		Role: role,
	})
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestServeCreate_Success(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := fixtures.DB()

	actor := fixtures.CreateUser(ctx, "27821110001", "Thandi Creator")

	body := `{"name":"Ward 12 Cleanup","members":[{"phone":"0821234567","name":"Sipho M"}]}`
	req := asUser(jsonRequest("POST", "/api/groups/", body), actor)
	rec := httptest.NewRecorder()

	handler.ServeCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var created models.Group
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if created.Name != "Ward 12 Cleanup" {
		t.Errorf("name: got %q, want %q", created.Name, "Ward 12 Cleanup")
	}

	count, err := db.Collection("groups").CountDocuments(ctx, bson.M{"name": "Ward 12 Cleanup"})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if count != 1 {
		t.Errorf("groups in db: got %d, want 1", count)
	}

	logs, err := db.Collection("group_audit_log").CountDocuments(ctx, bson.M{
		"group_id":    created.ID,
		"change_type": "group_added",
	})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if logs != 1 {
		t.Errorf("group_added log entries: got %d, want 1", logs)
	}
}

func TestServeCreate_Unauthenticated(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := jsonRequest("POST", "/api/groups/", `{"name":"Nobody Home"}`)
	rec := httptest.NewRecorder()

	handler.ServeCreate(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestServeCreate_MissingName(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := fixtures.CreateUser(ctx, "27821110002", "No Name")

	req := asUser(jsonRequest("POST", "/api/groups/", `{"name":"   "}`), actor)
	rec := httptest.NewRecorder()

	handler.ServeCreate(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d: %s", http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	}
}

func TestServeGet_NotFound(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := fixtures.CreateUser(ctx, "27821110003", "Lost Looker")

	req := asUser(testutil.NewRequest("GET", "/api/groups/"+primitive.NewObjectID().Hex()), actor)
	req = testutil.WithChiURLParam(req, "groupID", primitive.NewObjectID().Hex())
	rec := httptest.NewRecorder()

	handler.ServeGet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServeAddMembers_ForbiddenForNonMember(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "27821110004", "Owner")
	outsider := fixtures.CreateUser(ctx, "27821110005", "Outsider")
	group := fixtures.CreateGroup(ctx, "Closed Shop", owner.ID)

	body := `{"members":[{"phone":"0829998888","name":"New Person"}]}`
	req := asUser(jsonRequest("POST", "/api/groups/"+group.ID.Hex()+"/members", body), outsider)
	req = testutil.WithChiURLParam(req, "groupID", group.ID.Hex())
	rec := httptest.NewRecorder()

	handler.ServeAddMembers(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d: %s", http.StatusForbidden, rec.Code, rec.Body.String())
	}
}

func TestServeAddMembers_AdminPath(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := fixtures.DB()

	admin := fixtures.CreateAdmin(ctx, "27821110006", "Site Admin")
	group := fixtures.CreateGroup(ctx, "Admin Managed", admin.ID)

	body := `{"members":[{"phone":"0825550001","name":"Added One"},{"phone":"0825550002","name":"Added Two"}],"as_admin":true}`
	req := asUser(jsonRequest("POST", "/api/groups/"+group.ID.Hex()+"/members", body), admin)
	req = testutil.WithChiURLParam(req, "groupID", group.ID.Hex())
	rec := httptest.NewRecorder()

	handler.ServeAddMembers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp struct {
		Added int `json:"added"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Added != 2 {
		t.Errorf("added: got %d, want 2", resp.Added)
	}

	count, err := db.Collection("group_memberships").CountDocuments(ctx, bson.M{"group_id": group.ID})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if count != 2 {
		t.Errorf("memberships in db: got %d, want 2", count)
	}
}

func TestServeJoin_WrongCode(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "27821110007", "Owner")
	joiner := fixtures.CreateUser(ctx, "27821110008", "Joiner")
	group := fixtures.CreateGroup(ctx, "Token Gated", owner.ID)

	req := asUser(jsonRequest("POST", "/api/groups/"+group.ID.Hex()+"/join", `{"code":"000000"}`), joiner)
	req = testutil.WithChiURLParam(req, "groupID", group.ID.Hex())
	rec := httptest.NewRecorder()

	handler.ServeJoin(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d: %s", http.StatusForbidden, rec.Code, rec.Body.String())
	}
}

func TestServeDeactivate_CreatorSucceeds(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := fixtures.DB()

	admin := fixtures.CreateAdmin(ctx, "27821110009", "Creator Admin")
	group := fixtures.CreateGroup(ctx, "Short Lived", admin.ID)

	req := asUser(jsonRequest("POST", "/api/groups/"+group.ID.Hex()+"/deactivate", `{"check_window":false}`), admin)
	req = testutil.WithChiURLParam(req, "groupID", group.ID.Hex())
	rec := httptest.NewRecorder()

	handler.ServeDeactivate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var g models.Group
	if err := db.Collection("groups").FindOne(ctx, bson.M{"_id": group.ID}).Decode(&g); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if g.Status != models.StatusInactive {
		t.Errorf("status: got %q, want %q", g.Status, models.StatusInactive)
	}
}

func TestServeMerge_MalformedIDs(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := fixtures.CreateUser(ctx, "27821110010", "Merger")

	req := asUser(jsonRequest("POST", "/api/groups/merge", `{"first":"nope","second":"also-nope"}`), actor)
	rec := httptest.NewRecorder()

	handler.ServeMerge(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestServeSearch_DiscoverableOnly(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := fixtures.DB()

	actor := fixtures.CreateUser(ctx, "27821110031", "Searcher")
	creator := fixtures.CreateUser(ctx, "27821110032", "Creator")

	visible := fixtures.CreateGroup(ctx, "Ward 7 Cleanup", creator.ID)
	if _, err := db.Collection("groups").UpdateOne(ctx,
		bson.M{"_id": visible.ID},
		bson.M{"$set": bson.M{"discoverable": true}}); err != nil {
		t.Fatalf("flag discoverable: %v", err)
	}
	fixtures.CreateGroup(ctx, "Ward 7 Private", creator.ID)

	req := asUser(httptest.NewRequest("GET", "/api/groups/?query=ward+7", nil), actor)
	rec := httptest.NewRecorder()
	handler.ServeSearch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var found []models.Group
	if err := json.Unmarshal(rec.Body.Bytes(), &found); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(found) != 1 || found[0].ID != visible.ID {
		t.Fatalf("expected only the discoverable group, got %d results", len(found))
	}
}

func TestServeImportMembers_AddsValidRows(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := fixtures.DB()

	admin := fixtures.CreateAdmin(ctx, "27821110041", "Import Admin")
	group := fixtures.CreateGroup(ctx, "Import Target", admin.ID)

	csv := "Full Name,Phone,Role\nThandi Dlamini,0821234567,member\nSipho Ndlovu,0827654321,\n"
	req := httptest.NewRequest("POST", "/api/groups/"+group.ID.Hex()+"/members/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	req = asUser(testutil.WithChiURLParam(req, "groupID", group.ID.Hex()), admin)
	rec := httptest.NewRecorder()

	handler.ServeImportMembers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Added int `json:"added"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Added != 2 {
		t.Fatalf("added = %d, want 2", resp.Added)
	}

	count, err := db.Collection("group_memberships").CountDocuments(ctx, bson.M{"group_id": group.ID})
	if err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	if count != 2 {
		t.Fatalf("memberships = %d, want 2", count)
	}
}

func TestServeImportMembers_RejectsBadRows(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := fixtures.DB()

	admin := fixtures.CreateAdmin(ctx, "27821110051", "Import Admin")
	group := fixtures.CreateGroup(ctx, "Import Target", admin.ID)

	csv := "Thandi Dlamini,0821234567\nNo Phone Person,\n"
	req := httptest.NewRequest("POST", "/api/groups/"+group.ID.Hex()+"/members/import", strings.NewReader(csv))
	req = asUser(testutil.WithChiURLParam(req, "groupID", group.ID.Hex()), admin)
	rec := httptest.NewRecorder()

	handler.ServeImportMembers(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	count, err := db.Collection("group_memberships").CountDocuments(ctx, bson.M{"group_id": group.ID})
	if err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected upload must not add members, got %d", count)
	}
}
