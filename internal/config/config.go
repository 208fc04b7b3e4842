package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config 是应用配置的根结构体
type Config struct {
	Version  string         `mapstructure:"version" yaml:"version"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Host     HostConfig     `mapstructure:"host" yaml:"host"`
	Timeouts TimeoutConfig  `mapstructure:"timeouts" yaml:"timeouts"`
	Polish   PolishConfig   `mapstructure:"polish" yaml:"polish"`
	Ollama   OllamaConfig   `mapstructure:"ollama" yaml:"ollama"`
	Intent   IntentConfig   `mapstructure:"intent" yaml:"intent"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Fallback FallbackConfig `mapstructure:"fallback" yaml:"fallback"`
	Policy   PolicyConfig   `mapstructure:"policy" yaml:"policy"`
	Gateway  GatewayConfig  `mapstructure:"gateway" yaml:"gateway"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// HostConfig 宿主机自动化配置
// Driver: simulated（内存模拟，不产生真实副作用）或 local（调用本机命令）
type HostConfig struct {
	Driver   string `mapstructure:"driver" yaml:"driver"`
	TrashDir string `mapstructure:"trash_dir" yaml:"trash_dir"`
	// SkipStabilization 跳过工具执行后的稳定等待（测试与演示用）
	SkipStabilization bool `mapstructure:"skip_stabilization" yaml:"skip_stabilization"`
}

// TimeoutConfig 各阻塞边界的超时时间
type TimeoutConfig struct {
	Classifier time.Duration `mapstructure:"classifier" yaml:"classifier"`
	Resolver   time.Duration `mapstructure:"resolver" yaml:"resolver"`
	Tool       time.Duration `mapstructure:"tool" yaml:"tool"`
	Generate   time.Duration `mapstructure:"generate" yaml:"generate"`
	Planner    time.Duration `mapstructure:"planner" yaml:"planner"`
}

// PolishConfig 生成式润色配置
type PolishConfig struct {
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled"`
	MinRatio       float64  `mapstructure:"min_ratio" yaml:"min_ratio"`
	MaxRatio       float64  `mapstructure:"max_ratio" yaml:"max_ratio"`
	BannedPatterns []string `mapstructure:"banned_patterns" yaml:"banned_patterns"`
}

// OllamaConfig Ollama 本地 LLM 配置
type OllamaConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string        `mapstructure:"model" yaml:"model"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// IntentConfig 意图分类配置
type IntentConfig struct {
	MinConfidence float64            `mapstructure:"min_confidence" yaml:"min_confidence"`
	Rules         []IntentRuleConfig `mapstructure:"rules" yaml:"rules,omitempty"`
}

// IntentRuleConfig 追加的意图规则，按顺序排在内置规则之前
type IntentRuleConfig struct {
	Intent     string  `mapstructure:"intent" yaml:"intent"`
	Pattern    string  `mapstructure:"pattern" yaml:"pattern"`
	Confidence float64 `mapstructure:"confidence" yaml:"confidence"`
}

// ResolverConfig 工具解析配置
type ResolverConfig struct {
	MinConfidence float64              `mapstructure:"min_confidence" yaml:"min_confidence"`
	Rules         []ResolverRuleConfig `mapstructure:"rules" yaml:"rules,omitempty"`
}

// ResolverRuleConfig 追加的解析规则；Args 中以 $ 开头的字符串取正则命名分组
type ResolverRuleConfig struct {
	Intent     string         `mapstructure:"intent" yaml:"intent"`
	Pattern    string         `mapstructure:"pattern" yaml:"pattern"`
	Tool       string         `mapstructure:"tool" yaml:"tool"`
	Args       map[string]any `mapstructure:"args" yaml:"args,omitempty"`
	Confidence float64        `mapstructure:"confidence" yaml:"confidence"`
}

// FallbackConfig 兜底规划配置
type FallbackConfig struct {
	Enabled  bool `mapstructure:"enabled" yaml:"enabled"`
	MaxSteps int  `mapstructure:"max_steps" yaml:"max_steps"`
}

// PolicyConfig 工具准入策略
type PolicyConfig struct {
	DefaultAllow bool     `mapstructure:"default_allow" yaml:"default_allow"`
	Allowlist    []string `mapstructure:"allowlist" yaml:"allowlist"`
	Blocklist    []string `mapstructure:"blocklist" yaml:"blocklist"`
}

// GatewayConfig 网关配置
type GatewayConfig struct {
	Port      int             `mapstructure:"port" yaml:"port"`
	Host      string          `mapstructure:"host" yaml:"host"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int  `mapstructure:"burst" yaml:"burst"`
}

var (
	globalConfig *Config
	configPath   string
	mu           sync.RWMutex
)

// Load 加载配置文件
// 优先级: ENV > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	SetDefaults()

	viper.SetEnvPrefix("HOSTPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		expandedPath, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		configPath = expandedPath

		viper.SetConfigFile(expandedPath)
		if err := viper.ReadInConfig(); err != nil {
			// 忽略文件不存在错误，解析错误直接返回
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", expandedPath, err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	switch c.Host.Driver {
	case "simulated", "local":
	default:
		return fmt.Errorf("config: unknown host.driver %q", c.Host.Driver)
	}
	if c.Polish.MinRatio <= 0 || c.Polish.MaxRatio < c.Polish.MinRatio {
		return fmt.Errorf("config: invalid polish ratio bounds [%v, %v]", c.Polish.MinRatio, c.Polish.MaxRatio)
	}
	if c.Intent.MinConfidence < 0 || c.Intent.MinConfidence > 1 {
		return fmt.Errorf("config: intent.min_confidence must be within [0,1]")
	}
	if c.Resolver.MinConfidence < 0 || c.Resolver.MinConfidence > 1 {
		return fmt.Errorf("config: resolver.min_confidence must be within [0,1]")
	}
	return nil
}

// GetConfig 获取当前配置
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return globalConfig
}

// Path 返回当前配置文件路径
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return configPath
}

// SaveTo 保存配置到指定路径
func SaveTo(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Reset 重置配置（主要用于测试）
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	configPath = ""
	viper.Reset()
}
