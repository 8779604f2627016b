package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Connection holds the settings for one named PostgreSQL connection.
// Passwords may be given indirectly as ${VAR}, resolved against the process
// environment after loading the optional .env file.
type Connection struct {
	Host     string `toml:"host"`
	Port     uint16 `toml:"port"`
	Database string `toml:"database"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	SSLMode  string `toml:"sslmode"`
}

// DSN renders the connection as a pgx keyword/value string.
func (c *Connection) DSN(timeout uint8) string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "prefer"
	}

	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s connect_timeout=%d sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, timeout, sslmode,
	)
}

type LoggerConfigs struct {
	ConsoleLevel string `toml:"console_level"`
	FileLevel    string `toml:"file_level"`
	FileOutput   string `toml:"file_output"`
}

type Config struct {
	MaxWorkers  uint8                  `toml:"max_workers"`
	MaxRetries  uint8                  `toml:"max_retries"`
	Timeout     uint8                  `toml:"timeout"`
	Connections map[string]*Connection `toml:"connections"`
	Logging     LoggerConfigs          `toml:"logger"`
}

// Load reads the TOML configuration at path and resolves ${VAR} passwords.
// A .env file in the working directory is honored when present.
func Load(path string) (*Config, error) {
	conf := &Config{
		MaxWorkers: 4,
		MaxRetries: 3,
		Timeout:    10,
	}

	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, fmt.Errorf("error loading config TOML: %w", err)
	}

	// Missing .env is fine; environment variables may be set another way.
	_ = godotenv.Load()

	for _, conn := range conf.Connections {
		conn.Password = resolvePassword(conn.Password)
	}

	return conf, nil
}

// GetConnection returns the named connection, or nil when undefined.
func (c *Config) GetConnection(name string) *Connection {
	return c.Connections[name]
}

func resolvePassword(password string) string {
	if strings.HasPrefix(password, "${") && strings.HasSuffix(password, "}") {
		envVar := strings.TrimPrefix(strings.TrimSuffix(password, "}"), "${")
		return os.Getenv(envVar)
	}
	return password
}
