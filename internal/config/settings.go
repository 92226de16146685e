package config

import (
	"fmt"
	"os"
	"strings"
)

// Settings is the immutable configuration snapshot built once at startup.
// Components receive the sections they need; nothing mutates them after Load.
type Settings struct {
	Main     Main     `mapstructure:"main"`
	Cluster  Cluster  `mapstructure:"cluster"`
	Redis    Redis    `mapstructure:"redis"`
	Postgres Postgres `mapstructure:"postgres"`
	SMTP     SMTP     `mapstructure:"smtp"`
	EBI      EBI      `mapstructure:"ebi"`
}

// Main holds deployment-wide switches and the data directories handlers
// resolve artifact filepaths against.
type Main struct {
	TestEnvironment bool   `mapstructure:"test_environment"`
	BaseDataDir     string `mapstructure:"base_data_dir"`
	UploadDataDir   string `mapstructure:"upload_data_dir"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
}

// Cluster names the compute pools external runners submit to.
type Cluster struct {
	Demo         string `mapstructure:"demo_cluster"`
	Reserved     string `mapstructure:"reserved_cluster"`
	General      string `mapstructure:"general_cluster"`
	DemoSize     int    `mapstructure:"demo_cluster_size"`
	ReservedSize int    `mapstructure:"reserved_cluster_size"`
	GeneralSize  int    `mapstructure:"general_cluster_size"`
}

// Redis configures the optional cache. An empty host disables caching; the
// section itself is still required so a deployment states the choice.
type Redis struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Postgres configures the deployment metadata store.
type Postgres struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// SMTP carries mail relay credentials. This layer stores them for the outer
// platform; it never opens SMTP connections itself.
type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSL      bool   `mapstructure:"ssl"`
	Email    string `mapstructure:"email"`
}

// EBI carries sequence-archive submission credentials, stored for the outer
// platform's submission pipeline.
type EBI struct {
	AccessKey    string `mapstructure:"ebi_access_key"`
	SeqXferUser  string `mapstructure:"ebi_seq_xfer_user"`
	SeqXferPass  string `mapstructure:"ebi_seq_xfer_pass"`
	SeqXferURL   string `mapstructure:"ebi_seq_xfer_url"`
	DropboxURL   string `mapstructure:"ebi_dropbox_url"`
	SkipCurlCert bool   `mapstructure:"ebi_skip_curl_cert"`
}

func (s *Settings) validate() error {
	if err := s.Main.validate(); err != nil {
		return err
	}
	if err := s.Cluster.validate(); err != nil {
		return err
	}
	if err := s.Redis.validate(); err != nil {
		return err
	}
	if err := s.Postgres.validate(s.Main.TestEnvironment); err != nil {
		return err
	}
	return s.SMTP.validate()
}

func (m *Main) validate() error {
	if err := requireDir("main", "base_data_dir", m.BaseDataDir); err != nil {
		return err
	}
	if err := requireDir("main", "upload_data_dir", m.UploadDataDir); err != nil {
		return err
	}
	if m.Port <= 0 || m.Port > 65535 {
		return fmt.Errorf("main: port %d is out of range", m.Port)
	}
	return nil
}

func (c *Cluster) validate() error {
	for option, size := range map[string]int{
		"demo_cluster_size":     c.DemoSize,
		"reserved_cluster_size": c.ReservedSize,
		"general_cluster_size":  c.GeneralSize,
	} {
		if size < 0 {
			return fmt.Errorf("cluster: %s must not be negative", option)
		}
	}
	return nil
}

func (r *Redis) validate() error {
	if r.Host == "" {
		return nil
	}
	if r.Port <= 0 || r.Port > 65535 {
		return fmt.Errorf("redis: port %d is out of range", r.Port)
	}
	if r.DB < 0 {
		return fmt.Errorf("redis: db must not be negative")
	}
	return nil
}

func (p *Postgres) validate(testEnvironment bool) error {
	if p.User == "" {
		return fmt.Errorf("postgres: user is required")
	}
	if p.Database == "" {
		return fmt.Errorf("postgres: database is required")
	}
	if p.Host == "" {
		return fmt.Errorf("postgres: host is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("postgres: port %d is out of range", p.Port)
	}
	// Test deployments run against trust-authenticated local databases.
	if p.Password == "" && !testEnvironment {
		return fmt.Errorf("postgres: password is required when test_environment is false")
	}
	return nil
}

func (s *SMTP) validate() error {
	if s.Host == "" {
		return nil
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("smtp: port %d is out of range", s.Port)
	}
	return nil
}

func requireDir(section, option, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%s: %s is required", section, option)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %s %q is not an existing directory", section, option, path)
	}
	return nil
}
