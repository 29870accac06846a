// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/civihub/internal/app/store/audit"
	groupstore "github.com/dalemusser/civihub/internal/app/store/groups"
	"github.com/dalemusser/civihub/internal/app/store/outbox"
	userstore "github.com/dalemusser/civihub/internal/app/store/users"
	"github.com/dalemusser/civihub/internal/app/system/phone"
	"github.com/dalemusser/civihub/internal/app/system/timeouts"
	"github.com/dalemusser/civihub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Background workers are started here and stopped in Shutdown.
var (
	outboxDrain *workers.OutboxDrain
	tokenSweep  *workers.TokenSweep
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("configured handler timeouts from environment", zap.Int("count", n))
	}

	if appCfg.AdminPhone != "" {
		if err := ensureSystemAdmin(ctx, deps, appCfg.AdminPhone, logger); err != nil {
			return err
		}
	}

	outboxDrain = workers.NewOutboxDrain(
		outbox.New(deps.MongoDatabase),
		audit.New(deps.MongoDatabase),
		logger,
		appCfg.OutboxDrainInterval,
	)
	outboxDrain.Start()

	tokenSweep = workers.NewTokenSweep(
		groupstore.New(deps.MongoDatabase),
		logger,
		time.Hour,
	)
	tokenSweep.Start()

	return nil
}

// ensureSystemAdmin promotes the user with the given phone to system admin,
// creating a minimal user record when none exists yet.
func ensureSystemAdmin(ctx context.Context, deps DBDeps, rawPhone string, logger *zap.Logger) error {
	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return fmt.Errorf("admin_phone %q is not a usable phone number", rawPhone)
	}

	users := userstore.New(deps.MongoDatabase)
	u, err := users.GetByPhone(ctx, normalized)
	if errors.Is(err, userstore.ErrNotFound) {
		u, _, err = users.CreateMinimal(ctx, normalized, "System Admin")
		if err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		logger.Info("created system admin user", zap.String("user_id", u.ID.Hex()))
	} else if err != nil {
		return fmt.Errorf("lookup admin user: %w", err)
	}

	if u.SystemRole == "admin" {
		return nil
	}
	_, err = deps.MongoDatabase.Collection("users").UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{"$set": bson.M{"system_role": "admin"}})
	if err != nil {
		return fmt.Errorf("promote admin user: %w", err)
	}
	logger.Info("promoted user to system admin", zap.String("user_id", u.ID.Hex()))
	return nil
}
