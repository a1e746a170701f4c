// Package config holds the compile-time configuration for the DFU
// protocol engine. Unlike the link drivers or crypto providers, this is
// deliberately not an env/flag-driven library concern: it's fixed at
// compile time.
package config

// Config holds the engine's compile-time tuning constants.
type Config struct {
	MaxProtocolInstances       int
	DefaultMTU                 uint16
	MaxMsgLen                  uint16
	IdleSessionTimeoutMins     int
	SessionStartingTimeoutMins int
	MaxPeriodicCommands        int
	NakUnsupportedCommands     bool
	MaxRegistryLists           int
	MaxRecordsPerList          int
}

// SessionStartingTimeoutMS returns the starting-session timeout in
// milliseconds, computed from minutes with the correct 60_000
// multiplier.
func (c Config) SessionStartingTimeoutMS() int64 {
	return int64(c.SessionStartingTimeoutMins) * 60_000
}

// IdleSessionTimeoutMS returns the idle-session timeout in milliseconds.
func (c Config) IdleSessionTimeoutMS() int64 {
	return int64(c.IdleSessionTimeoutMins) * 60_000
}

// DefaultConfig returns the reference configuration used by the demo
// binaries and tests.
func DefaultConfig() Config {
	return Config{
		MaxProtocolInstances:       8,
		DefaultMTU:                 8,
		MaxMsgLen:                  1500,
		IdleSessionTimeoutMins:     5,
		SessionStartingTimeoutMins: 1,
		MaxPeriodicCommands:        4,
		NakUnsupportedCommands:     true,
		MaxRegistryLists:           4,
		MaxRecordsPerList:          256,
	}
}
