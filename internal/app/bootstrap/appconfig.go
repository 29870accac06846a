// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level, and request body limits. AppConfig is where
// everything specific to CiviHub lives.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionDomain string // Cookie domain (blank means current host)

	// Base URL of the deployment, used by the health endpoint's cert check.
	BaseURL string

	// Group size limiting
	LimitGroupSize bool // switch free-tier group size limiting on
	FreeTierLimit  int  // member cap for groups without a paid account

	// Group lifecycle
	DeactivationWindow time.Duration // how long after creation the relaxed deactivation path stays open
	DefaultLanguage    string        // stamped on groups created without a language

	// Outbox dispatch
	OutboxDrainInterval time.Duration // how often the drain worker retries failed bundles

	// Admin bootstrap: phone of the user promoted to system admin at startup.
	AdminPhone string
}
