package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/crawlers"
	"github.com/RecoveryAshes/ListHarvest/internal/extract"
	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/RecoveryAshes/ListHarvest/internal/output"
	"github.com/RecoveryAshes/ListHarvest/internal/utils"
	"github.com/spf13/viper"
)

// 内容源模式
const (
	SourceDynamic = "dynamic"
	SourceStatic  = "static"
)

// Config 应用程序配置
type Config struct {
	Traversal TraversalConfig       `mapstructure:"traversal"`
	Shard     ShardConfig           `mapstructure:"shard"`
	Browser   BrowserConfig         `mapstructure:"browser"`
	Controls  models.ControlCatalog `mapstructure:"controls"`
	Extract   extract.Config        `mapstructure:"extract"`
	Output    OutputConfig          `mapstructure:"output"`
	Logging   LoggingConfig         `mapstructure:"logging"`
	Resource  ResourceConfig        `mapstructure:"resource"`
	Headers   map[string]string     `mapstructure:"headers"`
}

// TraversalConfig 遍历配置
type TraversalConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	AttemptTimeout    time.Duration `mapstructure:"attempt_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ReadyTimeout      time.Duration `mapstructure:"ready_timeout"`
	SettleTimeout     time.Duration `mapstructure:"settle_timeout"`
	ScrollSteps       int           `mapstructure:"scroll_steps"`
	ScrollPause       time.Duration `mapstructure:"scroll_pause"`
	Convergence       string        `mapstructure:"convergence"`
}

// ShardConfig 分片配置
type ShardConfig struct {
	Param      string   `mapstructure:"param"`
	MaxPages   int      `mapstructure:"max_pages"`
	Values     []string `mapstructure:"values"`
	Workers    int      `mapstructure:"workers"`
	SinglePass bool     `mapstructure:"single_pass"` // 每个分片只抽取一次
}

// BrowserConfig 内容源配置
type BrowserConfig struct {
	Mode             string        `mapstructure:"mode"`
	Headless         bool          `mapstructure:"headless"`
	Stealth          bool          `mapstructure:"stealth"`
	UserAgent        string        `mapstructure:"user_agent"`
	BinPath          string        `mapstructure:"bin_path"`
	IgnoreCertErrors bool          `mapstructure:"ignore_cert_errors"`
	Delay            time.Duration `mapstructure:"delay"` // 静态模式同一会话内请求间隔
}

// OutputConfig 输出配置
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
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

// ResourceConfig 资源限制配置(MB)
type ResourceConfig struct {
	SafetyReserveMB  int `mapstructure:"safety_reserve_mb"`
	WorkerMemoryMB   int `mapstructure:"worker_memory_mb"`
	CPULoadThreshold int `mapstructure:"cpu_load_threshold"`
	MaxWorkersLimit  int `mapstructure:"max_workers_limit"`
}

// LoadConfig 加载配置文件,文件不存在时使用默认值
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
			v.AddConfigPath(filepath.Join(home, ".listharvest"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
		utils.Debugf("未找到配置文件,使用默认配置")
	} else {
		utils.Debugf("加载配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: fmt.Errorf("解析配置失败: %w", err)}
	}
	// controls 没有viper默认值, IsSet只反映配置文件; 写成 [] 可关闭对应策略
	config.Controls = config.Controls.WithDefaults(func(group string) bool {
		return v.IsSet("controls." + group)
	})

	return &config, nil
}

// DefaultConfig 不读取文件的默认配置
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// 默认值类型固定,解码不会失败
	_ = v.Unmarshal(&config)
	config.Controls = models.DefaultControlCatalog()
	return &config
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 遍历
	v.SetDefault("traversal.max_attempts", models.DefaultMaxAttempts)
	v.SetDefault("traversal.attempt_timeout", models.DefaultAttemptTimeout)
	v.SetDefault("traversal.poll_interval", models.DefaultPollInterval)
	v.SetDefault("traversal.navigation_timeout", models.DefaultNavigationTimeout)
	v.SetDefault("traversal.ready_timeout", models.DefaultReadyTimeout)
	v.SetDefault("traversal.settle_timeout", models.DefaultSettleTimeout)
	v.SetDefault("traversal.scroll_steps", models.DefaultScrollSteps)
	v.SetDefault("traversal.scroll_pause", models.DefaultScrollPause)
	v.SetDefault("traversal.convergence", string(models.ConvergeByCount))

	// 分片
	v.SetDefault("shard.param", "page")
	v.SetDefault("shard.max_pages", 12)
	v.SetDefault("shard.values", []string{})
	v.SetDefault("shard.workers", 3)
	v.SetDefault("shard.single_pass", true)

	// 内容源
	v.SetDefault("browser.mode", SourceDynamic)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.stealth", false)
	v.SetDefault("browser.user_agent", DefaultUserAgent)
	v.SetDefault("browser.bin_path", "")
	v.SetDefault("browser.ignore_cert_errors", false)
	v.SetDefault("browser.delay", time.Duration(0))

	// 抽取
	v.SetDefault("extract.item_selector", extract.DefaultItemSelector)
	v.SetDefault("extract.base_url", "")
	v.SetDefault("extract.key_field", extract.DefaultKeyField)
	v.SetDefault("extract.preset", extract.PresetRetail)

	// 输出
	v.SetDefault("output.format", output.FormatCSV)
	v.SetDefault("output.dir", "")

	// 日志
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 资源
	v.SetDefault("resource.safety_reserve_mb", 1024)
	v.SetDefault("resource.worker_memory_mb", 150)
	v.SetDefault("resource.cpu_load_threshold", 90)
	v.SetDefault("resource.max_workers_limit", 16)
}

// CLIFlags 命令行覆盖项,零值表示未指定
type CLIFlags struct {
	Format      string
	OutputDir   string
	Mode        string
	ShardParam  string
	LogLevel    string
	MaxAttempts int
	Workers     int
	MaxPages    int
	NoHeadless  bool
	Stealth     bool
}

// MergeCLIFlags 合并命令行参数到配置,命令行优先
func (c *Config) MergeCLIFlags(flags CLIFlags) {
	if flags.Format != "" {
		c.Output.Format = flags.Format
	}
	if flags.OutputDir != "" {
		c.Output.Dir = flags.OutputDir
	}
	if flags.Mode != "" {
		c.Browser.Mode = flags.Mode
	}
	if flags.ShardParam != "" {
		c.Shard.Param = flags.ShardParam
	}
	if flags.LogLevel != "" {
		c.Logging.Level = flags.LogLevel
	}
	if flags.MaxAttempts > 0 {
		c.Traversal.MaxAttempts = flags.MaxAttempts
	}
	if flags.Workers > 0 {
		c.Shard.Workers = flags.Workers
	}
	if flags.MaxPages > 0 {
		c.Shard.MaxPages = flags.MaxPages
	}
	if flags.NoHeadless {
		c.Browser.Headless = false
	}
	if flags.Stealth {
		c.Browser.Stealth = true
	}
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	if !output.ValidFormat(c.Output.Format) {
		return fmt.Errorf("不支持的输出格式: %s (可选: %s)", c.Output.Format, strings.Join(output.Formats, ", "))
	}
	if c.Browser.Mode != SourceDynamic && c.Browser.Mode != SourceStatic {
		return fmt.Errorf("无效的内容源模式: %s (可选: %s, %s)", c.Browser.Mode, SourceDynamic, SourceStatic)
	}
	if c.Shard.Workers < 1 {
		return fmt.Errorf("workers必须至少为1,当前 %d", c.Shard.Workers)
	}
	if c.Shard.Param == "" {
		return fmt.Errorf("分片参数名不能为空")
	}

	req := c.TraversalRequest("https://example.com")
	if err := req.Validate(); err != nil {
		return fmt.Errorf("遍历配置无效: %w", err)
	}
	return nil
}

// TraversalRequest 以配置生成指定位置的遍历请求
func (c *Config) TraversalRequest(location string) models.TraversalRequest {
	t := c.Traversal
	return models.TraversalRequest{
		Location:          location,
		MaxAttempts:       t.MaxAttempts,
		AttemptTimeout:    t.AttemptTimeout,
		PollInterval:      t.PollInterval,
		NavigationTimeout: t.NavigationTimeout,
		ReadyTimeout:      t.ReadyTimeout,
		SettleTimeout:     t.SettleTimeout,
		ScrollSteps:       t.ScrollSteps,
		ScrollPause:       t.ScrollPause,
		Convergence:       models.ConvergenceMode(t.Convergence),
	}
}

// LogConfig 转换为日志配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// ResourceMonitorConfig 转换为资源监控配置
func (c *Config) ResourceMonitorConfig() crawlers.ResourceMonitorConfig {
	const mb = 1024 * 1024
	return crawlers.ResourceMonitorConfig{
		SafetyReserveMemory: int64(c.Resource.SafetyReserveMB) * mb,
		CPULoadThreshold:    c.Resource.CPULoadThreshold,
		MaxWorkersLimit:     c.Resource.MaxWorkersLimit,
		WorkerMemoryUsage:   int64(c.Resource.WorkerMemoryMB) * mb,
	}
}
