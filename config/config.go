package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	Key           string   `mapstructure:"key"`
	AdminNetworks []string `mapstructure:"admin_networks"`
}

type DestinationConfig struct {
	URL            string `mapstructure:"url"`
	Method         string `mapstructure:"method"`
	ContentType    string `mapstructure:"content_type"`
	DataTable      string `mapstructure:"data_table"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	SplitPercent   int    `mapstructure:"split_percent"`
	MaxFraudScore  int    `mapstructure:"max_fraud_score"`
}

type ProxyConfig struct {
	MaxRequestErrorCount int               `mapstructure:"max_request_error_count"`
	ResetPauseMinutes    int               `mapstructure:"reset_pause_minutes"`
	CleanupInterval      string            `mapstructure:"cleanup_interval"`
	PassThru             bool              `mapstructure:"pass_thru"`
	FraudScore           DestinationConfig `mapstructure:"fraud_score"`
	LeadDelivery         DestinationConfig `mapstructure:"lead_delivery"`
}

type DataQueueConfig struct {
	URL     string `mapstructure:"url"`
	AuthKey string `mapstructure:"auth_key"`
	Timeout string `mapstructure:"timeout"`
}

type NotifyConfig struct {
	SlackURL  string `mapstructure:"slack_url"`
	Channel   string `mapstructure:"channel"`
	Title     string `mapstructure:"title"`
	PerMinute int    `mapstructure:"per_minute"`
	Burst     int    `mapstructure:"burst"`
}

type DeploymentConfig struct {
	Slot         string `mapstructure:"slot"`
	BuildVersion string `mapstructure:"build_version"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Proxy       ProxyConfig       `mapstructure:"proxy"`
	DataQueue   DataQueueConfig   `mapstructure:"data_queue"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Deployment  DeploymentConfig  `mapstructure:"deployment"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("health_check.interval", "1m")
	v.SetDefault("logging.level", LogLevelInfo)

	v.SetDefault("auth.key", "")
	v.SetDefault("auth.admin_networks", []string{"172.16.10.0/24"})

	v.SetDefault("proxy.max_request_error_count", 10)
	v.SetDefault("proxy.reset_pause_minutes", 15)
	v.SetDefault("proxy.cleanup_interval", "1m")
	v.SetDefault("proxy.pass_thru", false)

	v.SetDefault("proxy.fraud_score.url", "https://www.ipqualityscore.com/api/json/phone/KEY")
	v.SetDefault("proxy.fraud_score.method", "POST")
	v.SetDefault("proxy.fraud_score.content_type", "application/json")
	v.SetDefault("proxy.fraud_score.data_table", "ipqs")
	v.SetDefault("proxy.fraud_score.timeout_seconds", 30)
	v.SetDefault("proxy.fraud_score.split_percent", 50)
	v.SetDefault("proxy.fraud_score.max_fraud_score", 85)

	v.SetDefault("proxy.lead_delivery.url", "https://app.leadconduit.com/flows/FLOW/sources/SOURCE/submit")
	v.SetDefault("proxy.lead_delivery.method", "POST")
	v.SetDefault("proxy.lead_delivery.content_type", "application/json")
	v.SetDefault("proxy.lead_delivery.data_table", "leadconduit")
	v.SetDefault("proxy.lead_delivery.timeout_seconds", 30)

	v.SetDefault("data_queue.url", "")
	v.SetDefault("data_queue.auth_key", "")
	v.SetDefault("data_queue.timeout", "30s")

	v.SetDefault("notify.slack_url", "")
	v.SetDefault("notify.channel", "")
	v.SetDefault("notify.title", "Lead Call Proxy")
	v.SetDefault("notify.per_minute", 20)
	v.SetDefault("notify.burst", 5)

	v.SetDefault("deployment.slot", "local")
	v.SetDefault("deployment.build_version", "dev")

	v.SetDefault("metrics.buffer_size", 1000)
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Auth,
			validation.By(func(value interface{}) error {
				ac, ok := value.(AuthConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an AuthConfig")
				}
				return validation.ValidateStruct(&ac,
					validation.Field(&ac.AdminNetworks,
						validation.Each(validation.By(validateNetwork)),
					),
				)
			}),
		),
		validation.Field(&c.Proxy,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProxyConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProxyConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.MaxRequestErrorCount, validation.Required, validation.Min(1)),
					validation.Field(&pc.ResetPauseMinutes, validation.Required, validation.Min(1)),
					validation.Field(&pc.CleanupInterval, validation.Required, validation.By(validateDuration)),
					validation.Field(&pc.FraudScore, validation.By(validateDestination(true))),
					validation.Field(&pc.LeadDelivery, validation.By(validateDestination(false))),
				)
			}),
		),
		validation.Field(&c.DataQueue,
			validation.By(func(value interface{}) error {
				dc, ok := value.(DataQueueConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a DataQueueConfig")
				}
				return validation.ValidateStruct(&dc,
					validation.Field(&dc.URL, validation.By(validateOptionalURL)),
					validation.Field(&dc.Timeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Notify,
			validation.By(func(value interface{}) error {
				nc, ok := value.(NotifyConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a NotifyConfig")
				}
				return validation.ValidateStruct(&nc,
					validation.Field(&nc.SlackURL, validation.By(validateOptionalURL)),
					validation.Field(&nc.PerMinute, validation.Min(0)),
					validation.Field(&nc.Burst, validation.Min(0)),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
	)
}

// ResetPause is the breaker pause window.
func (c *Config) ResetPause() time.Duration {
	return time.Duration(c.Proxy.ResetPauseMinutes) * time.Minute
}

// HealthCheckInterval returns the parsed probe interval. Validate guarantees
// it parses.
func (c *Config) HealthCheckInterval() time.Duration {
	d, _ := time.ParseDuration(c.HealthCheck.Interval)
	return d
}

// CleanupInterval returns how often expired breaker entries are purged.
func (c *Config) CleanupInterval() time.Duration {
	d, _ := time.ParseDuration(c.Proxy.CleanupInterval)
	return d
}

// DataQueueTimeout returns the parsed record submission timeout.
func (c *Config) DataQueueTimeout() time.Duration {
	d, _ := time.ParseDuration(c.DataQueue.Timeout)
	return d
}

// AdminNetworks parses the admin networks. A bare IP is treated as a single
// host network.
func (c *Config) AdminNetworks() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.Auth.AdminNetworks))
	for _, raw := range c.Auth.AdminNetworks {
		n, err := parseNetwork(raw)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func parseNetwork(raw string) (*net.IPNet, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "/") {
		ip := net.ParseIP(raw)
		if ip == nil {
			return nil, fmt.Errorf("invalid admin network %q", raw)
		}
		bits := 128
		if ip.To4() != nil {
			ip = ip.To4()
			bits = 32
		}
		return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
	}

	_, n, err := net.ParseCIDR(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid admin network %q: %w", raw, err)
	}
	return n, nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}

	return nil
}

func validateNetwork(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if _, err := parseNetwork(raw); err != nil {
		return validation.NewError("validation_invalid_network", "must be an IP address or CIDR")
	}
	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "server URL cannot be empty")
	}

	if err := is.URL.Validate(serverURL); err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateOptionalURL(value interface{}) error {
	if s, ok := value.(string); ok && s == "" {
		return nil
	}
	return validateServerURL(value)
}

func validateDestination(fraudScore bool) validation.RuleFunc {
	return func(value interface{}) error {
		dc, ok := value.(DestinationConfig)
		if !ok {
			return validation.NewError("validation_invalid_type", "must be a DestinationConfig")
		}

		rules := []*validation.FieldRules{
			validation.Field(&dc.URL, validation.Required, validation.By(validateServerURL)),
			validation.Field(&dc.Method, validation.Required, validation.In("GET", "POST", "PUT")),
			validation.Field(&dc.DataTable, validation.Required),
			validation.Field(&dc.TimeoutSeconds, validation.Min(0)),
		}
		if fraudScore {
			rules = append(rules,
				validation.Field(&dc.SplitPercent, validation.Min(0), validation.Max(100)),
				validation.Field(&dc.MaxFraudScore, validation.Required, validation.Min(1), validation.Max(100)),
			)
		}
		return validation.ValidateStruct(&dc, rules...)
	}
}
