// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the service. Values absent from the YAML
// file keep the defaults applied by Load.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`

	Provider struct {
		BaseURL       string `yaml:"base_url"`
		Name          string `yaml:"name"`
		HTTPTimeoutMs int    `yaml:"http_timeout_ms"`

		SignerPhone struct {
			CountryCode string `yaml:"country_code"`
			AreaCode    string `yaml:"area_code"`
			PhoneNumber string `yaml:"phone_number"`
		} `yaml:"signer_phone"`
	} `yaml:"provider"`

	Job struct {
		WaitBetweenAPIsMs    int    `yaml:"wait_between_apis_ms"`
		WaitBetweenClientsMs int    `yaml:"wait_between_clients_ms"`
		MaxClientsPerToken   int    `yaml:"max_clients_per_token"`
		SchedulerEnabled     bool   `yaml:"scheduler_enabled"`
		SchedulerCron        string `yaml:"scheduler_cron"`
		RunOnStartup         bool   `yaml:"run_on_startup"`
	} `yaml:"job"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 3000
	cfg.Provider.BaseURL = "https://bff.v8sistema.com"
	cfg.Provider.Name = "QI"
	cfg.Provider.HTTPTimeoutMs = 30000
	cfg.Provider.SignerPhone.CountryCode = "55"
	cfg.Provider.SignerPhone.AreaCode = "11"
	cfg.Provider.SignerPhone.PhoneNumber = "980733602"
	cfg.Job.WaitBetweenAPIsMs = 3000
	cfg.Job.MaxClientsPerToken = 250
	cfg.Job.SchedulerEnabled = true
	cfg.Job.SchedulerCron = "0 * * * *"
	cfg.Job.RunOnStartup = true
	return cfg
}

// Load reads and validates the YAML config at path. Environment variable
// references (${VAR}) are expanded before parsing so secrets can stay out
// of the file itself.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports required settings that are missing.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "database.url")
	}
	if c.Provider.BaseURL == "" {
		missing = append(missing, "provider.base_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required settings not configured: %s", strings.Join(missing, ", "))
	}
	return nil
}
