// Package config defines service configuration structures and loading.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - External errors are wrapped via this package's sentinels.
package config

// SeedUser is an account created at startup if it does not exist yet.
// Authentication itself lives outside this service; seeds only make the
// identity lookup table usable out of the box.
type SeedUser struct {
	Email string   `koanf:"email"`
	Roles []string `koanf:"roles"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Storage selects the store backend: "sqlite" or "memory".
	Storage string `koanf:"storage"`

	// DBPath is the sqlite database file, used when Storage is sqlite.
	DBPath string `koanf:"db_path"`

	// SeedUsers are inserted at startup when missing.
	SeedUsers []SeedUser `koanf:"seed_users"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Addr:     ":9080",
		Storage:  "sqlite",
		DBPath:   "tally.db",
	}
}
