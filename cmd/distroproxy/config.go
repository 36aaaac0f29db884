package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/asaskevich/govalidator"
	"gopkg.in/yaml.v2"

	"gitlab.com/bella.network/distroproxy/pkg/repomap"
)

type Config struct {
	ListenPort     int    `yaml:"listen_port"`     // Port on which the proxy server listens
	StateDirectory string `yaml:"state_directory"` // Directory where statistics are persisted

	Index struct {
		Enable *bool  `yaml:"enable"` // Serve the documentation page on / and /index.html, enabled by default
		Origin string `yaml:"origin"` // Fixed origin used in shell snippets, derived from the request if empty
	} `yaml:"index"`

	// Overrides replaces the upstream of built-in repository prefixes, e.g.
	// "/ubuntu: http://de.archive.ubuntu.com/ubuntu". Unknown prefixes are
	// rejected.
	Overrides map[string]string `yaml:"overrides"`

	// Repositories adds further prefixes. They are merged after the built-in
	// groups and overrides, so they win on conflicts.
	Repositories []RepositoryConfig `yaml:"repositories"`

	MDNS bool `yaml:"mdns"` // Announce the proxy via mDNS on the local network

	Database struct {
		Hostname string `yaml:"hostname"` // Hostname of the database server, statistics are stored in MySQL if set
		Username string `yaml:"username"` // Username for the database
		Password string `yaml:"password"` // Password for the database
		Database string `yaml:"database"` // Name of the database to use
		Port     int    `yaml:"port"`     // Port of the database server
		Instance string `yaml:"instance"` // Name of this instance in shared statistics, defaults to the hostname
	} `yaml:"database"`

	Debug struct {
		Enable             bool `yaml:"enable"`               // Enable /_distroproxy/debug endpoints
		AllowRemote        bool `yaml:"allow_remote"`         // Allow debug endpoints from non-loopback addresses
		LogIntervalSeconds int  `yaml:"log_interval_seconds"` // Log memory statistics periodically if > 0
	} `yaml:"debug"`
}

// RepositoryConfig declares an additional repository prefix.
type RepositoryConfig struct {
	Prefix   string `yaml:"prefix"`   // Path prefix, e.g. /rocky
	Upstream string `yaml:"upstream"` // Upstream base URL, e.g. https://dl.rockylinux.org/pub/rocky
}

// ReadConfig reads the configuration file at path. A missing file results in
// the default configuration.
func ReadConfig(path string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, err
		}
	}

	// State directory may be set by environment variable, e.g for Docker,
	// development, etc.
	if stateDir := os.Getenv("STATE_DIR"); stateDir != "" {
		config.StateDirectory = stateDir
	}

	if config.StateDirectory == "" {
		config.StateDirectory = "./state"
	}

	if config.ListenPort == 0 {
		config.ListenPort = 8080
	}

	if config.Index.Enable == nil {
		enable := true
		config.Index.Enable = &enable
	}

	if config.Database.Hostname != "" && config.Database.Port == 0 {
		config.Database.Port = 3306
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the user supplied repository settings.
func (c *Config) Validate() error {
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid listen_port %d", c.ListenPort)
	}

	if c.Index.Origin != "" {
		if err := validateUpstream(c.Index.Origin); err != nil {
			return fmt.Errorf("index.origin: %w", err)
		}
		c.Index.Origin = strings.TrimRight(c.Index.Origin, "/")
	}

	builtin := repomap.Default()
	for prefix, upstream := range c.Overrides {
		if err := validatePrefix(prefix); err != nil {
			return fmt.Errorf("overrides: %w", err)
		}
		if _, ok := builtin.Entry(prefix); !ok {
			return fmt.Errorf("overrides: %q is not a built-in repository, add it to repositories instead", prefix)
		}
		if err := validateUpstream(upstream); err != nil {
			return fmt.Errorf("overrides %s: %w", prefix, err)
		}
	}

	for _, repository := range c.Repositories {
		if err := validatePrefix(repository.Prefix); err != nil {
			return fmt.Errorf("repositories: %w", err)
		}
		if err := validateUpstream(repository.Upstream); err != nil {
			return fmt.Errorf("repositories %s: %w", repository.Prefix, err)
		}
	}

	if c.Database.Hostname != "" && !govalidator.IsHost(c.Database.Hostname) {
		return fmt.Errorf("database.hostname %q is not a valid host", c.Database.Hostname)
	}

	return nil
}

func validatePrefix(prefix string) error {
	if !strings.HasPrefix(prefix, "/") || prefix == "/" || strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("prefix %q must start with / and must not end with /", prefix)
	}
	if prefix == internalPathPrefix || strings.HasPrefix(prefix, internalPathPrefix+"/") {
		return fmt.Errorf("prefix %q is reserved", prefix)
	}
	return nil
}

func validateUpstream(upstream string) error {
	if !govalidator.IsURL(upstream) {
		return fmt.Errorf("%q is not a valid URL", upstream)
	}

	u, err := url.Parse(upstream)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an absolute http or https URL", upstream)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%q must not contain a query or fragment", upstream)
	}

	return nil
}
