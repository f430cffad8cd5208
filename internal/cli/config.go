package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds fetch settings read from a YAML file. Flags override
// config values, and credentials may also come from the environment
// (SYSQL_USERNAME / SYSQL_PASSWORD), so nothing secret has to live on
// the command line.
type Config struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	PageSize int    `yaml:"page_size"`
	Insecure bool   `yaml:"insecure"`

	Project string `yaml:"project"` // project name prefix
	Branch  string `yaml:"branch"`  // branch name prefix

	// RoleAliases overrides the importer's property-to-role mapping.
	RoleAliases map[string]string `yaml:"role_aliases"`
}

// Environment variable names for credentials.
const (
	EnvUsername = "SYSQL_USERNAME"
	EnvPassword = "SYSQL_PASSWORD"
)

// LoadConfig reads and validates a YAML config file. Unknown keys are
// rejected so a typoed setting fails loudly instead of being ignored.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
