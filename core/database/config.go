package database

// Config holds settings for one SQLite store.
type Config struct {
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// ReadOnly opens the store without write access (used for the dictionary).
	ReadOnly bool `yaml:"read_only"`
}
