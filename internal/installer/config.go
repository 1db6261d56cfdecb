package installer

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/posttls/internal/lifecycle"
	"github.com/roach88/posttls/internal/postconf"
)

// DefaultPolicyTableName is the policy table filename inside the
// configuration directory when no explicit destination is configured.
const DefaultPolicyTableName = "tls_policy"

// DefaultJournalName is the checkpoint journal filename inside the
// configuration directory.
const DefaultJournalName = "posttls-checkpoints.db"

// Config holds the installer's own settings, loadable from a YAML file
// and overridable by CLI flags.
type Config struct {
	// Ctl is the path or name of the postfix control program.
	Ctl string `yaml:"ctl"`

	// ConfigUtility is the path or name of the postconf executable.
	ConfigUtility string `yaml:"config-utility"`

	// ConfigDir is the Postfix configuration directory to modify. When
	// empty, it is resolved from the config_directory parameter during
	// Prepare.
	ConfigDir string `yaml:"config-dir"`

	// PolicyFile is the TLS policy document to compile, if any.
	PolicyFile string `yaml:"policy-file"`

	// PolicyTable is the destination path for the compiled policy
	// table. Defaults to <config-dir>/tls_policy.
	PolicyTable string `yaml:"policy-table"`

	// JournalPath is the checkpoint journal database path. Defaults to
	// <config-dir>/posttls-checkpoints.db.
	JournalPath string `yaml:"journal"`

	// Timeout bounds each external tool invocation. Zero means no
	// bound.
	Timeout time.Duration `yaml:"timeout"`
}

// LoadConfig reads installer settings from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading installer config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing installer config %s: %w", path, err)
	}
	return cfg, nil
}

// WithDefaults fills unset fields with the conventional tool names.
func (c Config) WithDefaults() Config {
	if c.Ctl == "" {
		c.Ctl = lifecycle.DefaultExecutable
	}
	if c.ConfigUtility == "" {
		c.ConfigUtility = postconf.DefaultExecutable
	}
	return c
}
