// internal/app/broker/broker.go

// Package broker is the single entry point for group mutations. Every
// operation follows the same shape: permission check, quota check when
// members are being added, the mutation inside one transaction, and a
// bundle of audit logs and notifications handed to the dispatcher so side
// effects become visible only after the mutation commits.
package broker

import (
	"context"
	"time"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/app/jointoken"
	membershipstore "github.com/dalemusser/civihub/internal/app/store/memberships"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GroupStore is the persistence surface the broker needs for groups.
// *groupstore.Store satisfies it; tests use in-memory fakes.
type GroupStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	Create(ctx context.Context, g models.Group) (models.Group, error)
	UpdateInfo(ctx context.Context, id primitive.ObjectID, name, desc string) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
	SetParent(ctx context.Context, id primitive.ObjectID, parentID *primitive.ObjectID) error
	SetJoinToken(ctx context.Context, id primitive.ObjectID, code string, expiry time.Time) error
	SetDiscoverable(ctx context.Context, id primitive.ObjectID, discoverable bool, approverID *primitive.ObjectID) error
	SetImageKey(ctx context.Context, id primitive.ObjectID, key string) error
}

// MembershipStore mirrors *membershipstore.Store.
type MembershipStore interface {
	Add(ctx context.Context, groupID, userID primitive.ObjectID, role, alias string) error
	AddBatch(ctx context.Context, groupID primitive.ObjectID, entries []membershipstore.Entry) (membershipstore.AddBatchResult, error)
	Remove(ctx context.Context, groupID, userID primitive.ObjectID) error
	UpdateRole(ctx context.Context, groupID, userID primitive.ObjectID, role string) error
	Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.Membership, error)
	Exists(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error)
	ListByGroup(ctx context.Context, groupID primitive.ObjectID, role string) ([]models.Membership, error)
	CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
}

// UserStore mirrors the parts of *userstore.Store the broker touches.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindByPhones(ctx context.Context, phones []string) (map[string]models.User, error)
	CreateMinimal(ctx context.Context, phone, fullName string) (u models.User, created bool, err error)
}

// RoleStore mirrors *rolestore.Store.
type RoleStore interface {
	Seed(ctx context.Context, groupID primitive.ObjectID, template string) error
	SetPermissions(ctx context.Context, groupID primitive.ObjectID, role string, perms []authz.Permission) error
}

// MeetingStore supplies the upcoming meetings a new member should hear
// about.
type MeetingStore interface {
	UpcomingForGroups(ctx context.Context, groupIDs []primitive.ObjectID, now time.Time) ([]models.Meeting, error)
}

// PermissionChecker answers authorization questions. *grouppolicy.Checker
// is the production implementation.
type PermissionChecker interface {
	ValidateGroupPermission(ctx context.Context, userID, groupID primitive.ObjectID, perm authz.Permission) error
	HasGroupPermission(ctx context.Context, userID, groupID primitive.ObjectID, perm authz.Permission) (bool, error)
	IsSystemAdmin(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

// QuotaGuard mirrors *quota.Guard.
type QuotaGuard interface {
	RemainingCapacity(ctx context.Context, groupID primitive.ObjectID) (int, error)
	CanAdd(ctx context.Context, groupID primitive.ObjectID, n int) (bool, int, error)
}

// Dispatcher mirrors *dispatch.Dispatcher.
type Dispatcher interface {
	Defer(ctx context.Context, b *dispatch.Bundle) error
	Dispatch(ctx context.Context, b *dispatch.Bundle) error
}

// TxnRunner runs fn inside one transaction; fn's ctx carries the session.
type TxnRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// TopicUnsubscriber detaches a removed member from the group's push
// topics. Best effort: failures are logged, never fatal.
type TopicUnsubscriber interface {
	Unsubscribe(ctx context.Context, userID, groupID primitive.ObjectID) error
}

// MessageRenderer turns a meeting into notification copy. The real
// renderer (localization, templates) lives outside this core.
type MessageRenderer interface {
	MeetingNotice(group models.Group, meeting models.Meeting) string
}

// Config tunes broker behavior.
type Config struct {
	// DeactivationWindow is how long after creation a group can be
	// deactivated with checkWindow=true. Zero means the 48h default.
	DeactivationWindow time.Duration
	// DefaultLanguage is stamped on groups created without one.
	DefaultLanguage string
}

// DefaultDeactivationWindow applies when Config leaves it zero.
const DefaultDeactivationWindow = 48 * time.Hour

// Deps collects the broker's collaborators.
type Deps struct {
	Groups   GroupStore
	Members  MembershipStore
	Users    UserStore
	Roles    RoleStore
	Meetings MeetingStore
	Perms    PermissionChecker
	Quota    QuotaGuard
	Tokens   *jointoken.Manager
	Dispatch Dispatcher
	Txn      TxnRunner
	Topics   TopicUnsubscriber // optional
	Renderer MessageRenderer   // optional
	Log      *zap.Logger
}

// Broker is the group-mutation façade.
type Broker struct {
	groups   GroupStore
	members  MembershipStore
	users    UserStore
	roles    RoleStore
	meetings MeetingStore
	perms    PermissionChecker
	quota    QuotaGuard
	tokens   *jointoken.Manager
	dispatch Dispatcher
	txn      TxnRunner
	topics   TopicUnsubscriber
	renderer MessageRenderer
	log      *zap.Logger
	cfg      Config

	now func() time.Time
}

func New(deps Deps, cfg Config) *Broker {
	if cfg.DeactivationWindow <= 0 {
		cfg.DeactivationWindow = DefaultDeactivationWindow
	}
	if deps.Tokens == nil {
		deps.Tokens = jointoken.New(nil)
	}
	if deps.Renderer == nil {
		deps.Renderer = plainRenderer{}
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Broker{
		groups:   deps.Groups,
		members:  deps.Members,
		users:    deps.Users,
		roles:    deps.Roles,
		meetings: deps.Meetings,
		perms:    deps.Perms,
		quota:    deps.Quota,
		tokens:   deps.Tokens,
		dispatch: deps.Dispatch,
		txn:      deps.Txn,
		topics:   deps.Topics,
		renderer: deps.Renderer,
		log:      deps.Log,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Load fetches a group read-only. Used by the API layer; no permission
// check beyond what the caller already did.
func (b *Broker) Load(ctx context.Context, groupID primitive.ObjectID) (models.Group, error) {
	return b.groups.GetByID(ctx, groupID)
}

// ListMembers returns the group's memberships. Requires the see-details
// permission.
func (b *Broker) ListMembers(ctx context.Context, actorID, groupID primitive.ObjectID) ([]models.Membership, error) {
	if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermSeeGroupDetails); err != nil {
		return nil, err
	}
	return b.members.ListByGroup(ctx, groupID, "")
}

// ancestorIDs walks the parent chain, nearest ancestor first. The chain
// is bounded so a (never expected) parent cycle cannot spin forever.
func (b *Broker) ancestorIDs(ctx context.Context, g models.Group) ([]primitive.ObjectID, error) {
	var out []primitive.ObjectID
	cur := g
	for depth := 0; cur.ParentID != nil && depth < 8; depth++ {
		parent, err := b.groups.GetByID(ctx, *cur.ParentID)
		if err != nil {
			return nil, err
		}
		out = append(out, parent.ID)
		cur = parent
	}
	return out, nil
}

// plainRenderer is the fallback notification copy when no renderer is
// wired.
type plainRenderer struct{}

func (plainRenderer) MeetingNotice(group models.Group, meeting models.Meeting) string {
	return "Upcoming meeting for " + group.Name + " on " +
		meeting.StartsAt.Format("Mon 2 Jan 15:04")
}
