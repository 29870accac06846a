// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/civihub/internal/app/broker"
	"github.com/dalemusser/civihub/internal/app/dispatch"
	groupsfeature "github.com/dalemusser/civihub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/civihub/internal/app/features/health"
	loginfeature "github.com/dalemusser/civihub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/civihub/internal/app/features/logout"
	notificationsfeature "github.com/dalemusser/civihub/internal/app/features/notifications"
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
	"github.com/dalemusser/civihub/internal/app/system/message"
	"github.com/dalemusser/civihub/internal/app/system/ratelimit"
	"github.com/dalemusser/civihub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. CiviHub wires the store layer into the
// group-mutation broker and mounts the JSON API plus auth and health
// endpoints.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionDomain, secure, logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase

	groups := groupstore.New(db)
	members := membershipstore.New(db)
	users := userstore.New(db)
	roles := rolestore.New(db)
	meetings := meetingstore.New(db)
	accounts := accountstore.New(db)
	auditStore := audit.New(db)
	outboxStore := outbox.New(db)

	b := broker.New(broker.Deps{
		Groups:   groups,
		Members:  members,
		Users:    users,
		Roles:    roles,
		Meetings: meetings,
		Perms:    grouppolicy.New(members, roles, users),
		Quota: quota.New(accounts, members, quota.Config{
			LimitEnabled:  appCfg.LimitGroupSize,
			FreeTierLimit: appCfg.FreeTierLimit,
		}),
		Tokens:   jointoken.New(nil),
		Dispatch: dispatch.New(auditStore, outboxStore, logger),
		Txn:      txn.NewRunner(db, logger),
		Renderer: message.NewRenderer(appCfg.DefaultLanguage, logger),
		Log:      logger,
	}, broker.Config{
		DeactivationWindow: appCfg.DeactivationWindow,
		DefaultLanguage:    appCfg.DefaultLanguage,
	})

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(auth.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.BaseURL, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication.
	loginHandler := loginfeature.NewHandler(users, ratelimit.NewLoginLimiter(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Group mutation API.
	groupsHandler := groupsfeature.NewHandler(b, groups, auditStore, logger)
	r.Mount("/api/groups", groupsfeature.Routes(groupsHandler))

	// Per-user notification feed.
	notifHandler := notificationsfeature.NewHandler(auditStore, logger)
	r.Mount("/api/notifications", notificationsfeature.Routes(notifHandler))

	return r, nil
}
