// Package config loads the sluice YAML configuration file and parses the
// setting formats shared between the file and command line flags.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sluice-net/sluice/internal/logging"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the sluice configuration. Every field has a working default;
// command line flags that were set explicitly take precedence.
type Config struct {
	// Listen is the SOCKS5 listen address.
	Listen string `yaml:"listen"`

	// Upstream is the outbound target URL: direct:// or
	// socks5://[user:pass@]host:port. Empty falls back to the ALL_PROXY
	// environment or direct dialing.
	Upstream string `yaml:"upstream"`

	// DNS is an optional host:port DNS server used to resolve domain
	// targets. Empty uses the process resolver.
	DNS string `yaml:"dns"`

	NegotiationTimeout Duration `yaml:"negotiationTimeout"`
	DialTimeout        Duration `yaml:"dialTimeout"`
	IOTimeout          Duration `yaml:"ioTimeout"`

	// TCPKeepAlive is on|off|keepidle:keepintvl:keepcnt.
	TCPKeepAlive string `yaml:"tcpKeepAlive"`

	Log logging.Config `yaml:"log"`
}

// Default returns the configuration used when no file and no flags are
// given.
func Default() Config {
	return Config{
		Listen:             "127.0.0.1:1080",
		NegotiationTimeout: Duration(10 * time.Second),
		DialTimeout:        Duration(10 * time.Second),
		TCPKeepAlive:       "45:45:3",
		Log:                logging.Default(),
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
