// internal/app/broker/fakes_test.go
package broker_test

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	membershipstore "github.com/dalemusser/civihub/internal/app/store/memberships"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/app/system/phone"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// passTxn runs the function directly; there is no real transaction in
// unit tests.
type passTxn struct{}

func (passTxn) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeGroups struct {
	mu     sync.Mutex
	groups map[primitive.ObjectID]models.Group
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{groups: make(map[primitive.ObjectID]models.Group)}
}

func (f *fakeGroups) put(g models.Group) models.Group {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if g.Status == "" {
		g.Status = models.StatusActive
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	f.groups[g.ID] = g
	return g
}

func (f *fakeGroups) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return models.Group{}, groupstoreNotFound
	}
	return g, nil
}

func (f *fakeGroups) Create(_ context.Context, g models.Group) (models.Group, error) {
	return f.put(g), nil
}

func (f *fakeGroups) update(id primitive.ObjectID, fn func(*models.Group)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return groupstoreNotFound
	}
	fn(&g)
	f.groups[id] = g
	return nil
}

func (f *fakeGroups) UpdateInfo(_ context.Context, id primitive.ObjectID, name, desc string) error {
	return f.update(id, func(g *models.Group) {
		if name != "" {
			g.Name = name
		}
		g.Description = desc
	})
}

func (f *fakeGroups) SetStatus(_ context.Context, id primitive.ObjectID, status string) error {
	return f.update(id, func(g *models.Group) { g.Status = status })
}

func (f *fakeGroups) SetParent(_ context.Context, id primitive.ObjectID, parentID *primitive.ObjectID) error {
	return f.update(id, func(g *models.Group) { g.ParentID = parentID })
}

func (f *fakeGroups) SetJoinToken(_ context.Context, id primitive.ObjectID, code string, expiry time.Time) error {
	return f.update(id, func(g *models.Group) {
		g.JoinCode = code
		g.JoinCodeExpiry = expiry
	})
}

func (f *fakeGroups) SetDiscoverable(_ context.Context, id primitive.ObjectID, discoverable bool, approverID *primitive.ObjectID) error {
	return f.update(id, func(g *models.Group) {
		g.Discoverable = discoverable
		g.JoinApproverID = approverID
	})
}

func (f *fakeGroups) SetImageKey(_ context.Context, id primitive.ObjectID, key string) error {
	return f.update(id, func(g *models.Group) { g.ImageKey = key })
}

var groupstoreNotFound = errNotFound("group not found")

type errNotFound string

func (e errNotFound) Error() string { return string(e) }

type memberKey struct {
	group primitive.ObjectID
	user  primitive.ObjectID
}

type fakeMembers struct {
	mu       sync.Mutex
	rows     map[memberKey]models.Membership
	notFound error
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{rows: make(map[memberKey]models.Membership), notFound: membershipstore.ErrNotFound}
}

func (f *fakeMembers) Add(_ context.Context, groupID, userID primitive.ObjectID, role, alias string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := memberKey{groupID, userID}
	if _, dup := f.rows[k]; dup {
		return membershipstore.ErrDuplicateMembership
	}
	f.rows[k] = models.Membership{
		ID: primitive.NewObjectID(), GroupID: groupID, UserID: userID,
		Role: role, Alias: alias, CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (f *fakeMembers) AddBatch(ctx context.Context, groupID primitive.ObjectID, entries []membershipstore.Entry) (membershipstore.AddBatchResult, error) {
	var res membershipstore.AddBatchResult
	for _, e := range entries {
		switch err := f.Add(ctx, groupID, e.UserID, e.Role, e.Alias); err {
		case nil:
			res.Added++
		case membershipstore.ErrDuplicateMembership:
			res.Duplicates++
		default:
			return res, err
		}
	}
	return res, nil
}

func (f *fakeMembers) Remove(_ context.Context, groupID, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, memberKey{groupID, userID})
	return nil
}

func (f *fakeMembers) UpdateRole(_ context.Context, groupID, userID primitive.ObjectID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := memberKey{groupID, userID}
	m, ok := f.rows[k]
	if !ok {
		return f.notFound
	}
	m.Role = role
	f.rows[k] = m
	return nil
}

func (f *fakeMembers) Get(_ context.Context, groupID, userID primitive.ObjectID) (models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[memberKey{groupID, userID}]
	if !ok {
		return models.Membership{}, f.notFound
	}
	return m, nil
}

func (f *fakeMembers) Exists(_ context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[memberKey{groupID, userID}]
	return ok, nil
}

func (f *fakeMembers) ListByGroup(_ context.Context, groupID primitive.ObjectID, role string) ([]models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Membership
	for k, m := range f.rows {
		if k.group == groupID && (role == "" || m.Role == role) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembers) CountByGroup(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.rows {
		if k.group == groupID {
			n++
		}
	}
	return n, nil
}

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]models.User
	byPhone map[string]models.User
	minted  []string // normalized phones created via CreateMinimal
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byID:    make(map[primitive.ObjectID]models.User),
		byPhone: make(map[string]models.User),
	}
}

func (f *fakeUsers) put(u models.User) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.byID[u.ID] = u
	if u.Phone != "" {
		f.byPhone[u.Phone] = u
	}
	return u
}

func (f *fakeUsers) putPhone(raw, name string) models.User {
	norm, _ := phone.Normalize(raw)
	return f.put(models.User{Phone: norm, FullName: name})
}

func (f *fakeUsers) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, errNotFound("user not found")
	}
	return u, nil
}

func (f *fakeUsers) FindByPhones(_ context.Context, phones []string) (map[string]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.User)
	for _, p := range phones {
		if u, ok := f.byPhone[p]; ok {
			out[p] = u
		}
	}
	return out, nil
}

func (f *fakeUsers) CreateMinimal(_ context.Context, phoneNum, fullName string) (models.User, bool, error) {
	f.mu.Lock()
	if u, ok := f.byPhone[phoneNum]; ok {
		f.mu.Unlock()
		return u, false, nil
	}
	f.minted = append(f.minted, phoneNum)
	f.mu.Unlock()
	return f.put(models.User{Phone: phoneNum, FullName: fullName}), true, nil
}

type seededRoles struct {
	mu     sync.Mutex
	seeded map[primitive.ObjectID]string
	writes map[primitive.ObjectID]map[string][]authz.Permission
}

func newSeededRoles() *seededRoles {
	return &seededRoles{
		seeded: make(map[primitive.ObjectID]string),
		writes: make(map[primitive.ObjectID]map[string][]authz.Permission),
	}
}

func (f *seededRoles) Seed(_ context.Context, groupID primitive.ObjectID, template string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeded[groupID] = template
	return nil
}

func (f *seededRoles) SetPermissions(_ context.Context, groupID primitive.ObjectID, role string, perms []authz.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writes[groupID] == nil {
		f.writes[groupID] = make(map[string][]authz.Permission)
	}
	if role == authz.RoleOrganizer {
		perms = authz.WithProtected(perms)
	}
	f.writes[groupID][role] = perms
	return nil
}

type fakeMeetings struct {
	meetings []models.Meeting
}

func (f *fakeMeetings) UpcomingForGroups(_ context.Context, groupIDs []primitive.ObjectID, now time.Time) ([]models.Meeting, error) {
	in := make(map[primitive.ObjectID]bool, len(groupIDs))
	for _, id := range groupIDs {
		in[id] = true
	}
	var out []models.Meeting
	for _, m := range f.meetings {
		if in[m.GroupID] && m.StartsAt.After(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

// allowPerms grants every group permission unless a (user, permission)
// pair was explicitly denied.
type allowPerms struct {
	denied map[primitive.ObjectID]map[authz.Permission]bool
	admins map[primitive.ObjectID]bool
}

func newAllowPerms() *allowPerms {
	return &allowPerms{
		denied: make(map[primitive.ObjectID]map[authz.Permission]bool),
		admins: make(map[primitive.ObjectID]bool),
	}
}

func (f *allowPerms) deny(userID primitive.ObjectID, perm authz.Permission) {
	if f.denied[userID] == nil {
		f.denied[userID] = make(map[authz.Permission]bool)
	}
	f.denied[userID][perm] = true
}

func (f *allowPerms) HasGroupPermission(_ context.Context, userID, _ primitive.ObjectID, perm authz.Permission) (bool, error) {
	return !f.denied[userID][perm], nil
}

func (f *allowPerms) ValidateGroupPermission(ctx context.Context, userID, groupID primitive.ObjectID, perm authz.Permission) error {
	ok, _ := f.HasGroupPermission(ctx, userID, groupID, perm)
	if !ok {
		return authz.Denied(userID, groupID, perm)
	}
	return nil
}

func (f *allowPerms) IsSystemAdmin(_ context.Context, userID primitive.ObjectID) (bool, error) {
	return f.admins[userID], nil
}

// txnCtxKey marks contexts handed out by markTxn.
type txnCtxKey struct{}

// markTxn tags the ctx it passes fn, so a test can tell whether a later
// call rode the transaction.
type markTxn struct{}

func (markTxn) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, txnCtxKey{}, true))
}

// recordingDispatch records, per call, whether the ctx carried the
// transaction marker.
type recordingDispatch struct {
	mu       sync.Mutex
	deferred []bool
	direct   []bool
}

func inMarkedTxn(ctx context.Context) bool {
	v, _ := ctx.Value(txnCtxKey{}).(bool)
	return v
}

func (d *recordingDispatch) Defer(ctx context.Context, _ *dispatch.Bundle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deferred = append(d.deferred, inMarkedTxn(ctx))
	return nil
}

func (d *recordingDispatch) Dispatch(ctx context.Context, _ *dispatch.Bundle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.direct = append(d.direct, inMarkedTxn(ctx))
	return nil
}

// memBundleStore is an in-memory durable store, recording every bundle.
type memBundleStore struct {
	mu      sync.Mutex
	bundles []*dispatch.Bundle
}

func (f *memBundleStore) StoreBundle(_ context.Context, b *dispatch.Bundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundles = append(f.bundles, b)
	return nil
}

func (f *memBundleStore) Enqueue(ctx context.Context, b *dispatch.Bundle) error {
	return f.StoreBundle(ctx, b)
}

func (f *memBundleStore) logsOfType(changeType string) []models.AuditLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AuditLogEntry
	for _, b := range f.bundles {
		for _, e := range b.Logs {
			if e.ChangeType == changeType {
				out = append(out, e)
			}
		}
	}
	return out
}

func (f *memBundleStore) notifications() []models.NotificationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NotificationRequest
	for _, b := range f.bundles {
		out = append(out, b.Notifications...)
	}
	return out
}

// seqCodes hands out predictable join codes.
type seqCodes struct {
	mu sync.Mutex
	n  int
}

func (g *seqCodes) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return []string{"111111", "222222", "333333", "444444"}[(g.n-1)%4]
}
