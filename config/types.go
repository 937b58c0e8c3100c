package config

// Backend defines which implementation backs one of the bot's stores
type Backend string

// All possible Backend constants
const (
	BackendMemory   = Backend("memory")
	BackendPostgres = Backend("postgres")
	BackendRedis    = Backend("redis")
)
