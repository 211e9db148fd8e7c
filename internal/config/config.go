// Package config loads and validates the kpsync configuration file.
//
// The file lists the databases to keep in sync and the entries to
// synchronize between them:
//
//	databases:
//	  - name: personal
//	    path: ~/vaults/personal.kdbx
//	    keyfile: ~/.keys/personal.keyx
//	    required: true
//	  - name: work
//	    path: $WORK_DIR/work.kdbx
//	    create_missing: true
//	entries:
//	  - Personal/Google
//	  - Github
//
// Discovery order: the --config path, then ./kpsync.yaml, then
// $XDG_CONFIG_HOME/kpsync/kpsync.yaml. Home (~) and environment
// variables in paths are expanded at load time; the engine receives
// already-expanded paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Database is one configured database.
type Database struct {
	// Name is the alias used in reports and errors. Defaults to the
	// file name without extension.
	Name string `mapstructure:"name" yaml:"name"`

	// Path is the database file path. Supports ~ and $VAR expansion.
	Path string `mapstructure:"path" yaml:"path"`

	// KeyFile is an optional key file unlocking the database alongside
	// the master password.
	KeyFile string `mapstructure:"keyfile" yaml:"keyfile,omitempty"`

	// Required makes any requested entry that is absent from this
	// database a fatal error.
	Required bool `mapstructure:"required" yaml:"required,omitempty"`

	// CreateMissing creates entries in this database when another
	// database holds them and this one does not.
	CreateMissing bool `mapstructure:"create_missing" yaml:"create_missing,omitempty"`
}

// Config is the full, validated configuration for one run.
type Config struct {
	Databases []Database `mapstructure:"databases" yaml:"databases"`
	Entries   []string   `mapstructure:"entries" yaml:"entries"`
}

// Load reads the configuration. path may be empty to use the discovery
// order from the package comment.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kpsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := configHome(); dir != "" {
			v.AddConfigPath(filepath.Join(dir, "kpsync"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("malformed config %s: %w", v.ConfigFileUsed(), err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", v.ConfigFileUsed(), err)
	}
	return &cfg, nil
}

// configHome returns the XDG config home, or the platform default.
func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// normalize expands paths, fills default names, and validates.
func (c *Config) normalize() error {
	if len(c.Entries) == 0 {
		return fmt.Errorf("no entries listed")
	}
	for i, e := range c.Entries {
		c.Entries[i] = strings.TrimSpace(e)
		if c.Entries[i] == "" {
			return fmt.Errorf("entry %d is empty", i+1)
		}
	}

	if len(c.Databases) == 0 {
		return fmt.Errorf("no databases listed")
	}

	seen := make(map[string]bool, len(c.Databases))
	for i := range c.Databases {
		db := &c.Databases[i]
		if db.Path == "" {
			return fmt.Errorf("database %d has no path", i+1)
		}
		db.Path = ExpandPath(db.Path)
		if db.KeyFile != "" {
			db.KeyFile = ExpandPath(db.KeyFile)
		}
		if db.Name == "" {
			base := filepath.Base(db.Path)
			db.Name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		if seen[db.Name] {
			return fmt.Errorf("duplicate database name %q", db.Name)
		}
		seen[db.Name] = true
	}
	return nil
}

// ExpandPath applies environment variable and ~ expansion.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// ParseDBOverride parses one --db flag value of the form
// "path" or "path:keyfile", mirroring the config file fields.
func ParseDBOverride(value string) (Database, error) {
	parts := strings.SplitN(value, ":", 2)
	if parts[0] == "" {
		return Database{}, fmt.Errorf("invalid --db value %q: empty database path", value)
	}

	db := Database{Path: ExpandPath(parts[0])}
	if len(parts) == 2 {
		if parts[1] == "" {
			return Database{}, fmt.Errorf("invalid --db value %q: empty keyfile path", value)
		}
		db.KeyFile = ExpandPath(parts[1])
	}
	base := filepath.Base(db.Path)
	db.Name = strings.TrimSuffix(base, filepath.Ext(base))
	return db, nil
}

// ApplyDBOverrides replaces the configured database list with the --db
// flag values, keeping the configured entry list.
func (c *Config) ApplyDBOverrides(values []string) error {
	if len(values) == 0 {
		return nil
	}

	dbs := make([]Database, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		db, err := ParseDBOverride(v)
		if err != nil {
			return err
		}
		// Disambiguate repeated base names (db.kdbx in two directories).
		name := db.Name
		for n := 2; seen[db.Name]; n++ {
			db.Name = fmt.Sprintf("%s-%d", name, n)
		}
		seen[db.Name] = true
		dbs = append(dbs, db)
	}
	c.Databases = dbs
	return nil
}

// starterHeader tops the file written by `kpsync config init`.
const starterHeader = `# kpsync configuration.
#
# Each database is opened with its own master password (prompted at run
# time) and optional key file. Entries are matched by title, optionally
# qualified with a folder path ("Personal/Google") when the same title
# exists in more than one folder.
`

// WriteStarter writes a commented starter configuration to path.
// Refuses to overwrite an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	starter := Config{
		Databases: []Database{
			{Name: "personal", Path: "~/vaults/personal.kdbx", Required: true},
			{Name: "work", Path: "~/vaults/work.kdbx", CreateMissing: true},
		},
		Entries: []string{"Github", "Personal/Google"},
	}

	body, err := yaml.Marshal(&starter)
	if err != nil {
		return fmt.Errorf("failed to render starter config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(starterHeader), body...), 0600); err != nil {
		return fmt.Errorf("failed to write starter config: %w", err)
	}
	return nil
}
