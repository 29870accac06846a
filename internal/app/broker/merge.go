// internal/app/broker/merge.go
package broker

import (
	"context"
	"strings"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	membershipstore "github.com/dalemusser/civihub/internal/app/store/memberships"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MergeOptions tunes a merge.
type MergeOptions struct {
	// LeaveActive keeps the source group(s) active after the merge.
	LeaveActive bool
	// OrderSpecified takes the argument order as given instead of picking
	// the larger group as the target.
	OrderSpecified bool
	// CreateNew merges both groups into a freshly created group and
	// (unless LeaveActive) deactivates both sources.
	CreateNew bool
	// NewName names the group created when CreateNew is set.
	NewName string
}

// MergeResult reports where the members ended up.
type MergeResult struct {
	TargetID     primitive.ObjectID `json:"target_id"`
	SourceID     primitive.ObjectID `json:"source_id"`
	MembersMoved int                `json:"members_moved"`
}

// Merge combines two groups. Unless the caller fixed the order, the group
// with more members becomes the target and the smaller one the source,
// ties going to the second argument. The steps of a merge commit
// separately: a crash between them can leave the members moved but the
// source still active, which is accepted and visible rather than rolled
// back.
func (b *Broker) Merge(ctx context.Context, actorID, firstID, secondID primitive.ObjectID, opts MergeOptions) (MergeResult, error) {
	if firstID == secondID {
		return MergeResult{}, &InvalidArgumentError{Reason: "cannot merge a group with itself"}
	}

	first, err := b.groups.GetByID(ctx, firstID)
	if err != nil {
		return MergeResult{}, err
	}
	second, err := b.groups.GetByID(ctx, secondID)
	if err != nil {
		return MergeResult{}, err
	}

	into, from := first, second
	if !opts.OrderSpecified {
		firstCount, err := b.members.CountByGroup(ctx, firstID)
		if err != nil {
			return MergeResult{}, err
		}
		secondCount, err := b.members.CountByGroup(ctx, secondID)
		if err != nil {
			return MergeResult{}, err
		}
		// Tie goes to the second argument.
		if secondCount >= firstCount {
			into, from = second, first
		}
	}

	if opts.CreateNew {
		return b.mergeIntoNew(ctx, actorID, into, from, opts)
	}

	if err := b.perms.ValidateGroupPermission(ctx, actorID, into.ID, authz.PermAddGroupMember); err != nil {
		return MergeResult{}, err
	}
	if !opts.LeaveActive {
		if err := b.perms.ValidateGroupPermission(ctx, actorID, from.ID, authz.PermUpdateGroupDetails); err != nil {
			return MergeResult{}, err
		}
	}

	fromMembers, err := b.members.ListByGroup(ctx, from.ID, "")
	if err != nil {
		return MergeResult{}, err
	}
	intoMembers, err := b.members.ListByGroup(ctx, into.ID, "")
	if err != nil {
		return MergeResult{}, err
	}
	existing := make(map[primitive.ObjectID]struct{}, len(intoMembers))
	for _, m := range intoMembers {
		existing[m.UserID] = struct{}{}
	}

	var entries []membershipstore.Entry
	for _, m := range fromMembers {
		if _, dup := existing[m.UserID]; dup {
			continue
		}
		entries = append(entries, membershipstore.Entry{UserID: m.UserID, Role: m.Role, Alias: m.Alias})
	}

	ok, remaining, err := b.quota.CanAdd(ctx, into.ID, len(entries))
	if err != nil {
		return MergeResult{}, err
	}
	if !ok {
		return MergeResult{}, &GroupSizeLimitExceededError{GroupID: into.ID, Requested: len(entries), Remaining: remaining}
	}

	// Target first, then source, always in that order.
	bundle := dispatch.NewBundle()
	err = b.txn.Run(ctx, func(ctx context.Context) error {
		if _, err := b.members.AddBatch(ctx, into.ID, entries); err != nil {
			return err
		}
		fromID := from.ID
		bundle.AddLog(into.ID, actorID, models.ChangeMerge, &fromID, "absorbed "+from.Name)
		for _, e := range entries {
			uid := e.UserID
			bundle.AddLog(into.ID, actorID, models.ChangeMemberAdded, &uid, "")
		}
		return nil
	})
	if err != nil {
		return MergeResult{}, err
	}

	if !opts.LeaveActive {
		err = b.txn.Run(ctx, func(ctx context.Context) error {
			intoID := into.ID
			bundle.AddLog(from.ID, actorID, models.ChangeMerge, &intoID, "merged into "+into.Name)
			return b.deactivateInTxn(ctx, actorID, from, bundle)
		})
		if err != nil {
			return MergeResult{}, err
		}
	}

	if err := b.dispatch.Dispatch(ctx, bundle); err != nil {
		return MergeResult{}, err
	}
	return MergeResult{TargetID: into.ID, SourceID: from.ID, MembersMoved: len(entries)}, nil
}

// mergeIntoNew unions both member sets into a freshly created group and
// deactivates the sources unless LeaveActive. The create and each
// deactivation commit separately.
func (b *Broker) mergeIntoNew(ctx context.Context, actorID primitive.ObjectID, into, from models.Group, opts MergeOptions) (MergeResult, error) {
	if err := b.perms.ValidateGroupPermission(ctx, actorID, into.ID, authz.PermAddGroupMember); err != nil {
		return MergeResult{}, err
	}
	if !opts.LeaveActive {
		for _, g := range []models.Group{into, from} {
			if err := b.perms.ValidateGroupPermission(ctx, actorID, g.ID, authz.PermUpdateGroupDetails); err != nil {
				return MergeResult{}, err
			}
		}
	}

	name := strings.TrimSpace(opts.NewName)
	if name == "" {
		return MergeResult{}, &ValidationError{Field: "new_name", Reason: "required when creating a merged group"}
	}

	union := make(map[primitive.ObjectID]membershipstore.Entry)
	for _, g := range []models.Group{from, into} {
		ms, err := b.members.ListByGroup(ctx, g.ID, "")
		if err != nil {
			return MergeResult{}, err
		}
		// Later iteration wins, so the target group's role survives a
		// conflict.
		for _, m := range ms {
			union[m.UserID] = membershipstore.Entry{UserID: m.UserID, Role: m.Role, Alias: m.Alias}
		}
	}
	entries := make([]membershipstore.Entry, 0, len(union))
	for _, e := range union {
		entries = append(entries, e)
	}

	bundle := dispatch.NewBundle()
	var created models.Group
	err := b.txn.Run(ctx, func(ctx context.Context) error {
		var err error
		created, err = b.groups.Create(ctx, models.Group{
			Name:            name,
			DefaultLanguage: into.DefaultLanguage,
			CreatedBy:       actorID,
		})
		if err != nil {
			return err
		}
		if err := b.roles.Seed(ctx, created.ID, authz.TemplateDefault); err != nil {
			return err
		}

		ok, remaining, err := b.quota.CanAdd(ctx, created.ID, len(entries))
		if err != nil {
			return err
		}
		if !ok {
			return &GroupSizeLimitExceededError{GroupID: created.ID, Requested: len(entries), Remaining: remaining}
		}

		if _, err := b.members.AddBatch(ctx, created.ID, entries); err != nil {
			return err
		}
		bundle.AddLog(created.ID, actorID, models.ChangeGroupAdded, nil, name)
		intoID, fromID := into.ID, from.ID
		bundle.AddLog(created.ID, actorID, models.ChangeMerge, &intoID, "merged from "+into.Name)
		bundle.AddLog(created.ID, actorID, models.ChangeMerge, &fromID, "merged from "+from.Name)
		return nil
	})
	if err != nil {
		return MergeResult{}, err
	}

	if !opts.LeaveActive {
		for _, g := range []models.Group{into, from} {
			src := g
			err = b.txn.Run(ctx, func(ctx context.Context) error {
				return b.deactivateInTxn(ctx, actorID, src, bundle)
			})
			if err != nil {
				return MergeResult{}, err
			}
		}
	}

	if err := b.dispatch.Dispatch(ctx, bundle); err != nil {
		return MergeResult{}, err
	}
	return MergeResult{TargetID: created.ID, SourceID: from.ID, MembersMoved: len(entries)}, nil
}
