// internal/app/broker/create.go
package broker

import (
	"context"
	"strings"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/app/reconcile"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateParams describes a group to create.
type CreateParams struct {
	Name               string
	Description        string
	ParentID           *primitive.ObjectID
	Members            []reconcile.MemberDescriptor
	PermissionTemplate string
	ReminderMinutes    int
	Language           string
	OpenJoinToken      bool
}

// Create builds a new group: the group record, its seeded role table, the
// initial member set (creation-mode reconciliation, so no removal logic),
// and optionally an open join token. Members with unusable phone numbers
// are dropped, not fatal. The bundle is dispatched as soon as the
// transaction commits since creation never composes with other mutations.
func (b *Broker) Create(ctx context.Context, actorID primitive.ObjectID, p CreateParams) (models.Group, error) {
	if actorID.IsZero() {
		return models.Group{}, &ValidationError{Field: "actor", Reason: "required"}
	}
	name := strings.TrimSpace(htmlsanitize.Sanitize(p.Name))
	if name == "" {
		return models.Group{}, &ValidationError{Field: "name", Reason: "required"}
	}
	template := p.PermissionTemplate
	if template == "" {
		template = authz.TemplateDefault
	}
	if !authz.ValidTemplate(template) {
		return models.Group{}, &ValidationError{Field: "permission_template", Reason: "unknown template " + template}
	}

	var parent models.Group
	if p.ParentID != nil {
		var err error
		parent, err = b.groups.GetByID(ctx, *p.ParentID)
		if err != nil {
			return models.Group{}, &ValidationError{Field: "parent_group", Reason: "not found"}
		}
	}

	language := p.Language
	if language == "" {
		language = b.cfg.DefaultLanguage
	}

	bundle := dispatch.NewBundle()
	var group models.Group

	err := b.txn.Run(ctx, func(ctx context.Context) error {
		var err error
		group, err = b.groups.Create(ctx, models.Group{
			Name:                   name,
			Description:            htmlsanitize.Sanitize(p.Description),
			ParentID:               p.ParentID,
			DefaultReminderMinutes: p.ReminderMinutes,
			DefaultLanguage:        language,
			CreatedBy:              actorID,
		})
		if err != nil {
			return err
		}
		if err := b.roles.Seed(ctx, group.ID, template); err != nil {
			return err
		}

		known, err := b.resolveKnownUsers(ctx, p.Members)
		if err != nil {
			return err
		}
		plan := reconcile.Compute(reconcile.Input{
			Mode:       reconcile.ModeCreation,
			Targets:    p.Members,
			KnownUsers: known,
		})

		wanted := len(plan.AddExisting) + len(plan.AddNew)
		ok, remaining, err := b.quota.CanAdd(ctx, group.ID, wanted)
		if err != nil {
			return err
		}
		if !ok {
			return &GroupSizeLimitExceededError{GroupID: group.ID, Requested: wanted, Remaining: remaining}
		}

		bundle.AddLog(group.ID, actorID, models.ChangeGroupAdded, nil, name)
		if p.ParentID != nil {
			child := group.ID
			bundle.AddLog(parent.ID, actorID, models.ChangeSubgroupAdded, &child, name)
		}

		added, err := b.applyPlan(ctx, group, actorID, plan, bundle, models.ChangeMemberAdded)
		if err != nil {
			return err
		}
		if err := b.queueMeetingNotices(ctx, group, added, bundle); err != nil {
			return err
		}

		if p.OpenJoinToken {
			desc := b.tokens.Open(&group, nil, b.now())
			if err := b.groups.SetJoinToken(ctx, group.ID, group.JoinCode, group.JoinCodeExpiry); err != nil {
				return err
			}
			bundle.AddLog(group.ID, actorID, models.ChangeTokenChanged, nil, desc)
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}

	if err := b.dispatch.Dispatch(ctx, bundle); err != nil {
		return group, err
	}
	return group, nil
}
