/*
Copyright 2025 LeadForge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"

	ModeProduction  = "production"
	ModeDevelopment = "development"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"LEADFORGE_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"LEADFORGE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"LEADFORGE_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"LEADFORGE_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"LEADFORGE_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"LEADFORGE_SERVER_PORT"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"LEADFORGE_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"LEADFORGE_REDIS_SKIP_TLS_VERIFY"`
}

// LockConfig bounds the distributed lock manager. TTLSeconds caps how long a
// crashed holder can block a resource; RetryDelayMs is the single bounded
// sleep before the one built-in retry.
type LockConfig struct {
	TTLSeconds   int `json:"ttl_seconds" envconfig:"LEADFORGE_LOCK_TTL_SECONDS"`
	RetryDelayMs int `json:"retry_delay_ms" envconfig:"LEADFORGE_LOCK_RETRY_DELAY_MS"`
}

// OperationConfig bounds the lifetime of operation audit records. Expiry is
// store-side; there is no sweeper process.
type OperationConfig struct {
	TTLSeconds int `json:"ttl_seconds" envconfig:"LEADFORGE_OPERATION_TTL_SECONDS"`
}

// StreamConfig bounds the job status streaming loop: at most MaxPolls waits
// of PollIntervalMs each before the stream ends without error.
type StreamConfig struct {
	MaxPolls       int `json:"max_polls" envconfig:"LEADFORGE_STREAM_MAX_POLLS"`
	PollIntervalMs int `json:"poll_interval_ms" envconfig:"LEADFORGE_STREAM_POLL_INTERVAL_MS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"LEADFORGE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"LEADFORGE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"LEADFORGE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName    string          `json:"project_name" envconfig:"LEADFORGE_PROJECT_NAME"`
	DeploymentMode string          `json:"deployment_mode" envconfig:"LEADFORGE_DEPLOYMENT_MODE"`
	ApiToken       string          `json:"api_token" envconfig:"LEADFORGE_API_TOKEN"`
	Server         ServerConfig    `json:"server"`
	Redis          RedisConfig     `json:"redis"`
	Lock           LockConfig      `json:"lock"`
	Operation      OperationConfig `json:"operation"`
	Stream         StreamConfig    `json:"stream"`
	RateLimit      RateLimitConfig `json:"rate_limit"`
	Notification   Notification    `json:"notification"`
}

// Production reports whether the service runs in the production posture,
// where an unreachable store is fatal rather than substituted.
func (cnf *Configuration) Production() bool {
	return cnf.DeploymentMode == ModeProduction
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("leadforge", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called leadforge.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "LeadForge Server"
	}

	if cnf.DeploymentMode == "" {
		cnf.DeploymentMode = ModeDevelopment
	}
	if cnf.DeploymentMode != ModeProduction && cnf.DeploymentMode != ModeDevelopment {
		log.Printf("Error: unknown deployment mode %q", cnf.DeploymentMode)
		return errors.New("deployment mode must be production or development")
	}

	if cnf.Redis.Dns == "" {
		if cnf.Production() {
			log.Println("Error: Redis DNS is empty. It's a required field in production.")
			return errors.New("redis DNS is required")
		}
		cnf.Redis.Dns = "localhost:6379"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Lock.TTLSeconds <= 0 {
		cnf.Lock.TTLSeconds = 10
	}
	if cnf.Lock.RetryDelayMs <= 0 {
		cnf.Lock.RetryDelayMs = 100
	}
	if cnf.Operation.TTLSeconds <= 0 {
		cnf.Operation.TTLSeconds = 30
	}
	if cnf.Stream.MaxPolls <= 0 {
		cnf.Stream.MaxPolls = 120
	}
	if cnf.Stream.PollIntervalMs <= 0 {
		cnf.Stream.PollIntervalMs = 500
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if err := mockConfig.validateAndAddDefaults(); err != nil {
		log.Println(err)
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
