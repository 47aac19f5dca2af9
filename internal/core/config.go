package core

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/knapsack/internal/browser"
	"github.com/RecoveryAshes/knapsack/internal/crawlers"
	"github.com/RecoveryAshes/knapsack/internal/models"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀,如 KNAPSACK_FETCH_RETRY_MAX_RETRIES
const EnvPrefix = "KNAPSACK"

// Config 应用程序配置
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Obtain  ObtainConfig  `mapstructure:"obtain"`
	Browser BrowserConfig `mapstructure:"browser"`
	Report  ReportConfig  `mapstructure:"report"`
	Headers HeadersConfig `mapstructure:"headers"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// FetchConfig 抓取配置
type FetchConfig struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxBodySize        int           `mapstructure:"max_body_size"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Retry              RetrySettings `mapstructure:"retry"`
}

// RetrySettings 退避重试配置
type RetrySettings struct {
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	MaxRetries    int           `mapstructure:"max_retries"` // -1 表示无限重试
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	MaxDelay      time.Duration `mapstructure:"max_delay"` // 0 表示不设上限
}

// ObtainConfig 下载配置
type ObtainConfig struct {
	Progress bool `mapstructure:"progress"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	Bin           string        `mapstructure:"bin"`
	DebugMaxPages int           `mapstructure:"debug_max_pages"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

// ReportConfig 报告配置
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// HeadersConfig 头部配置文件位置
type HeadersConfig struct {
	File string `mapstructure:"file"`
}

// LoadConfig 加载配置文件
// configPath为空时依次搜索 ./configs、当前目录和 ~/.knapsack 下的 config.yaml,
// 找不到配置文件时使用默认值。环境变量 KNAPSACK_* 覆盖文件中的值。
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".knapsack"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 抓取配置默认值
	defaultRetry := crawlers.DefaultRetryConfig()
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_body_size", models.MaxFileSize)
	v.SetDefault("fetch.insecure_skip_verify", false)
	v.SetDefault("fetch.retry.initial_delay", defaultRetry.InitialDelay)
	v.SetDefault("fetch.retry.max_retries", defaultRetry.MaxRetries)
	v.SetDefault("fetch.retry.backoff_factor", defaultRetry.BackoffFactor)
	v.SetDefault("fetch.retry.max_delay", defaultRetry.MaxDelay)

	// 下载配置默认值
	v.SetDefault("obtain.progress", true)

	// 浏览器配置默认值
	defaultBrowser := browser.DefaultConfig()
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.debug_max_pages", defaultBrowser.DebugMaxPages)
	v.SetDefault("browser.poll_interval", defaultBrowser.PollInterval)

	// 报告配置默认值
	v.SetDefault("report.enabled", false)
	v.SetDefault("report.dir", "reports")

	v.SetDefault("headers.file", "")
}

// Validate 验证配置取值范围
func (c *Config) Validate() error {
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout 不能为负数")
	}
	if c.Fetch.MaxBodySize < 0 {
		return fmt.Errorf("fetch.max_body_size 不能为负数")
	}
	if c.Fetch.Retry.InitialDelay < 0 {
		return fmt.Errorf("fetch.retry.initial_delay 不能为负数")
	}
	if c.Fetch.Retry.BackoffFactor < 1 {
		return fmt.Errorf("fetch.retry.backoff_factor 必须大于等于1")
	}
	if c.Fetch.Retry.MaxDelay < 0 {
		return fmt.Errorf("fetch.retry.max_delay 不能为负数")
	}
	if c.Browser.DebugMaxPages < 1 {
		return fmt.Errorf("browser.debug_max_pages 必须大于等于1")
	}
	return nil
}

// RetryConfig 转换为退避执行器参数
func (c *Config) RetryConfig() crawlers.RetryConfig {
	return crawlers.RetryConfig{
		InitialDelay:  c.Fetch.Retry.InitialDelay,
		MaxRetries:    c.Fetch.Retry.MaxRetries,
		BackoffFactor: c.Fetch.Retry.BackoffFactor,
		MaxDelay:      c.Fetch.Retry.MaxDelay,
	}
}

// BrowserSettings 转换为浏览器参数
func (c *Config) BrowserSettings() browser.Config {
	return browser.Config{
		Bin:              c.Browser.Bin,
		PollInterval:     c.Browser.PollInterval,
		DebugMaxPages:    c.Browser.DebugMaxPages,
		IgnoreCertErrors: c.Fetch.InsecureSkipVerify,
	}
}

// TransportConfig 转换为HTTP传输参数,headers为每个请求附加的头部
func (c *Config) TransportConfig(headers http.Header) crawlers.HTTPTransportConfig {
	return crawlers.HTTPTransportConfig{
		Timeout:            c.Fetch.Timeout,
		MaxBodySize:        c.Fetch.MaxBodySize,
		InsecureSkipVerify: c.Fetch.InsecureSkipVerify,
		Headers:            headers,
	}
}

// MergeCLIFlags 合并命令行参数到配置,命令行优先
// maxRetries < -1 表示未设置
func (c *Config) MergeCLIFlags(logLevel string, maxRetries int, report bool) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if maxRetries >= -1 {
		c.Fetch.Retry.MaxRetries = maxRetries
	}
	if report {
		c.Report.Enabled = true
	}
}
