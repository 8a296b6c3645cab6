package config

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

const (
	defaultConfigPath = "configs/config_local.toml"
	configPathEnv     = "LIVEDOCK_CONFIG"

	EnvProduction = "production"

	DefaultAlertThresholdMinutes    = 5
	DefaultDevAlertThresholdMinutes = 0.15
	DefaultSweepLockSeconds         = 9
)

type MainConfig struct {
	AppName          string   `toml:"appName"`
	Host             string   `toml:"host"`
	Port             int      `toml:"port"`
	Environment      string   `toml:"environment"`
	AppKey           string   `toml:"appKey"`
	PublicBackendURL string   `toml:"publicBackendUrl"`
	WhiteListDomains []string `toml:"whiteListDomains"`
	ForceSSL         bool     `toml:"forceSSL"`
}

type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type LogConfig struct {
	LogPath    string `toml:"logPath"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"maxSizeMB"`
	MaxBackups int    `toml:"maxBackups"`
	MaxAgeDays int    `toml:"maxAgeDays"`
}

type JwtConfig struct {
	Key string `toml:"key"`
}

// PushConfig Web Push (VAPID) 配置
type PushConfig struct {
	VapidPublicKey  string `toml:"vapidPublicKey"`
	VapidPrivateKey string `toml:"vapidPrivateKey"`
	Subscriber      string `toml:"subscriber"`
	TTLSeconds      int    `toml:"ttlSeconds"`
	TimeoutSeconds  int    `toml:"timeoutSeconds"`
}

// ReceptionConfig 流程告警阈值，生产环境与其它环境分开配置
// 阈值为 0 表示待确认状态一出现即重发；SweepLockSeconds 必须大于 0，不填或填 0 时取默认值
type ReceptionConfig struct {
	SweepSpec                string   `toml:"sweepSpec"`
	AlertThresholdMinutes    *float64 `toml:"alertThresholdMinutes"`
	DevAlertThresholdMinutes *float64 `toml:"devAlertThresholdMinutes"`
	SupersedeAlerts          *bool    `toml:"supersedeAlerts"`
	SweepLockSeconds         int      `toml:"sweepLockSeconds"`
}

type KafkaConfig struct {
	Brokers            []string `toml:"brokers"`
	ClientID           string   `toml:"clientID"`
	ProcessEventsTopic string   `toml:"processEventsTopic"`
	Partitions         int32    `toml:"partitions"`
	Replication        int16    `toml:"replication"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type Config struct {
	MainConfig      `toml:"mainConfig"`
	DatabaseConfig  `toml:"databaseConfig"`
	JwtConfig       `toml:"jwtConfig"`
	LogConfig       `toml:"logConfig"`
	PushConfig      `toml:"pushConfig"`
	ReceptionConfig `toml:"receptionConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	RedisConfig     `toml:"redisConfig"`
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvProduction)
}

// AlertThreshold 当前环境下待确认状态的告警阈值（分钟）
func (c *Config) AlertThreshold() float64 {
	v, def := c.DevAlertThresholdMinutes, DefaultDevAlertThresholdMinutes
	if c.IsProduction() {
		v, def = c.AlertThresholdMinutes, DefaultAlertThresholdMinutes
	}
	switch {
	case v == nil:
		return def
	case *v < 0:
		return 0
	}
	return *v
}

// ShouldSupersedeAlerts 新告警是否使同一流程下的旧告警失效
func (c *Config) ShouldSupersedeAlerts() bool {
	return c.SupersedeAlerts == nil || *c.SupersedeAlerts
}

var (
	config *Config
	once   sync.Once
)

// Load 从指定路径解析配置并补全默认值
func Load(path string) (*Config, error) {
	conf := new(Config)
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, err
	}
	applyDefaults(conf)
	return conf, nil
}

// Default 不依赖配置文件的默认配置
func Default() *Config {
	conf := new(Config)
	applyDefaults(conf)
	return conf
}

func GetConfig() *Config {
	once.Do(func() {
		path := defaultConfigPath
		if p := strings.TrimSpace(os.Getenv(configPathEnv)); p != "" {
			path = p
		}
		conf, err := Load(path)
		if err != nil {
			log.Printf("加载配置文件失败: %v, 使用默认设置", err)
			conf = Default()
		}
		config = conf
	})
	return config
}

func applyDefaults(c *Config) {
	if c.AppName == "" {
		c.AppName = "livedock"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "0.0.0.0"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8080
	}
	if c.Environment == "" {
		c.Environment = "development"
	}

	if c.Driver == "" {
		c.Driver = "mysql"
	}
	if c.DatabaseConfig.Port == 0 {
		switch c.Driver {
		case "postgres":
			c.DatabaseConfig.Port = 5432
		default:
			c.DatabaseConfig.Port = 3306
		}
	}
	if c.DatabaseName == "" {
		c.DatabaseName = c.AppName
	}

	if c.Level == "" {
		c.Level = "info"
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 100
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 7
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 30
	}

	if c.TTLSeconds == 0 {
		c.TTLSeconds = 60
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 8
	}

	if c.SweepSpec == "" {
		c.SweepSpec = "*/10 * * * * *"
	}
	if c.AlertThresholdMinutes == nil {
		v := float64(DefaultAlertThresholdMinutes)
		c.AlertThresholdMinutes = &v
	}
	if c.DevAlertThresholdMinutes == nil {
		v := DefaultDevAlertThresholdMinutes
		c.DevAlertThresholdMinutes = &v
	}
	if c.SweepLockSeconds <= 0 {
		c.SweepLockSeconds = DefaultSweepLockSeconds
	}

	if c.KafkaConfig.ClientID == "" {
		c.KafkaConfig.ClientID = c.AppName
	}
	if c.ProcessEventsTopic == "" {
		c.ProcessEventsTopic = "livedock.process-events"
	}
	if c.Partitions == 0 {
		c.Partitions = 3
	}
	if c.Replication == 0 {
		c.Replication = 1
	}

	if c.RedisConfig.Host != "" && c.RedisConfig.Port == 0 {
		c.RedisConfig.Port = 6379
	}
}
