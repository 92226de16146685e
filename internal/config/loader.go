package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// EnvConfigPath names the environment variable that overrides the
	// settings file location.
	EnvConfigPath = "GOBIOME_CONFIG_FP"

	// DefaultConfigPath is used when EnvConfigPath is unset.
	DefaultConfigPath = "support_files/config_test.cfg"
)

// requiredSections must all be present in the settings file. The redis
// section is required even though its fields are optional: a deployment has
// to state whether it caches.
var requiredSections = []string{"main", "cluster", "redis", "postgres", "smtp", "ebi"}

// ResolvePath returns the settings file location: $GOBIOME_CONFIG_FP when
// set, the repository default otherwise.
func ResolvePath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Load reads, decodes, and validates the settings file at ResolvePath().
func Load() (*Settings, error) {
	return LoadFile(ResolvePath())
}

// LoadFile reads, decodes, and validates a specific settings file. Every
// problem is fatal: a missing section, a malformed typed field, or a data
// directory that does not exist all fail here rather than at first use.
func LoadFile(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Section presence is checked against the file contents alone, before
	// defaults are merged in.
	if err := checkSections(v); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	v.SetDefault("main.host", "localhost")
	v.SetDefault("main.port", 8080)
	v.SetDefault("redis.port", 6379)

	var s Settings
	if err := v.Unmarshal(&s, func(dc *mapstructure.DecoderConfig) {
		// INI values arrive as strings; let the decoder coerce ints and bools.
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &s, nil
}

func checkSections(v *viper.Viper) error {
	present := map[string]bool{}
	for key := range v.AllSettings() {
		present[key] = true
	}

	var missing []string
	for _, section := range requiredSections {
		if !present[section] {
			missing = append(missing, section)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required sections: %s", strings.Join(missing, ", "))
	}
	return nil
}
