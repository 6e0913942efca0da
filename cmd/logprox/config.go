package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-variable-driven runtime configuration of
// the log-forwarding proxy, per spec §6.
type Config struct {
	GreengrassV1Config string `env:"GREENGRASS_V1_CONFIG" envDefault:"/greengrass/config/config.json"`
	GreengrassV2Config string `env:"GREENGRASS_V2_CONFIG" envDefault:"/greengrass/v2/init_config/config.yaml"`
	AwsProfileInfo     string `env:"AWS_PROFILE_INFO" envDefault:"/greengrass/config/profile_info.yaml"`

	ListenAddress string `env:"LISTEN_ADDRESS" envDefault:"0.0.0.0"`
	ListenPort    int    `env:"LISTEN_PORT" envDefault:"8083"`
	GRPCPort      int    `env:"GRPC_PORT" envDefault:"8084"`

	MaxLogsBacklog   int           `env:"MAX_LOGS_BACKLOG" envDefault:"4096"`
	MaxLogsPerMerge  int           `env:"MAX_LOGS_PER_MERGE" envDefault:"512"`
	UploadInterval   time.Duration `env:"UPLOAD_INTERVAL" envDefault:"60s"`
	ECUInfoYAML      string        `env:"ECU_INFO_YAML"`
	SelfLogUpload    bool          `env:"UPLOAD_LOGGING_SERVER_LOGS" envDefault:"false"`
	SelfLogStreamSuf string        `env:"SERVER_LOGSTREAM_SUFFIX" envDefault:"logprox"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// maxLogsPerPut is the remote API ceiling on events per PutLogEvents call
// (spec §3 UploadBatch); it is not operator-configurable.
const maxLogsPerPut = 10000

// LoadConfig reads Config from the environment, applying the defaults
// above to any variable left unset.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr is the address the HTTP ingress (and /metrics) server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.ListenPort)
}

// GRPCListenAddr is the address the gRPC ingress server binds to.
func (c *Config) GRPCListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.GRPCPort)
}
