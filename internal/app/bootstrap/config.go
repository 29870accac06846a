// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CiviHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_key, etc.
//   - Environment variables: CIVIHUB_MONGO_URI, CIVIHUB_SESSION_KEY, etc.
//   - Command-line flags: --mongo_uri, --session_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "civihub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL of this deployment"},

	{Name: "limit_group_size", Default: true, Desc: "Enforce the free-tier group size limit"},
	{Name: "free_tier_limit", Default: 256, Desc: "Member cap for groups without a paid account"},

	{Name: "deactivation_window", Default: "48h", Desc: "Window after creation in which the relaxed deactivation path stays open"},
	{Name: "default_language", Default: "en", Desc: "Language stamped on groups created without one"},

	{Name: "outbox_drain_interval", Default: "30s", Desc: "How often the outbox drain worker retries failed dispatch bundles"},

	{Name: "admin_phone", Default: "", Desc: "Phone number of the user promoted to system admin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CIVIHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionDomain: appValues.String("session_domain"),

		BaseURL: appValues.String("base_url"),

		LimitGroupSize: appValues.Bool("limit_group_size"),
		FreeTierLimit:  appValues.Int("free_tier_limit"),

		DeactivationWindow: appValues.Duration("deactivation_window", 48*time.Hour),
		DefaultLanguage:    appValues.String("default_language"),

		OutboxDrainInterval: appValues.Duration("outbox_drain_interval", 30*time.Second),

		AdminPhone: appValues.String("admin_phone"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// CiviHub validates the MongoDB URI format to catch configuration errors
// early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.LimitGroupSize && appCfg.FreeTierLimit <= 0 {
		return fmt.Errorf("free_tier_limit must be positive when limit_group_size is on, got %d", appCfg.FreeTierLimit)
	}
	return nil
}
