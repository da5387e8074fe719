package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Pairing token limits
const (
	MaxPairingTTL          = 30 * time.Minute
	MaxActiveTokensPerUser = 5
)

// Background job intervals
const ReaperInterval = 5 * time.Minute

// Anonymous principals that never completed a link are purged after this age.
const OrphanPrincipalMaxAge = 24 * time.Hour
