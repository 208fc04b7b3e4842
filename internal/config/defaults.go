package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultBannedPatterns 润色文本中不允许出现的建议/观点句式
var DefaultBannedPatterns = []string{
	`(?i)\byou should\b`,
	`(?i)\bI recommend\b`,
	`(?i)\bI suggest\b`,
	`(?i)\bin my opinion\b`,
	`(?i)\bI think\b`,
	`(?i)\bconsider\b`,
	`(?i)\bit is advisable\b`,
}

// SetDefaults 设置所有配置项的默认值
func SetDefaults() {
	viper.SetDefault("version", "1")

	// Log 配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.file", "")

	// Storage 配置
	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.path", "")

	// Host 配置：默认使用模拟宿主，避免误触真实副作用
	viper.SetDefault("host.driver", "simulated")
	viper.SetDefault("host.trash_dir", "")
	viper.SetDefault("host.skip_stabilization", false)

	// 超时配置
	viper.SetDefault("timeouts.classifier", 5*time.Second)
	viper.SetDefault("timeouts.resolver", 5*time.Second)
	viper.SetDefault("timeouts.tool", 30*time.Second)
	viper.SetDefault("timeouts.generate", 60*time.Second)
	viper.SetDefault("timeouts.planner", 2*time.Minute)

	// Polish 配置
	viper.SetDefault("polish.enabled", false)
	viper.SetDefault("polish.min_ratio", 0.5)
	viper.SetDefault("polish.max_ratio", 2.5)
	viper.SetDefault("polish.banned_patterns", DefaultBannedPatterns)

	// Ollama 配置
	viper.SetDefault("ollama.endpoint", "http://localhost:11434")
	viper.SetDefault("ollama.model", "llama3.2")
	viper.SetDefault("ollama.timeout", 2*time.Minute)

	// Intent / Resolver 配置
	viper.SetDefault("intent.min_confidence", 0.5)
	viper.SetDefault("resolver.min_confidence", 0.6)

	// Fallback 配置
	viper.SetDefault("fallback.enabled", false)
	viper.SetDefault("fallback.max_steps", 5)

	// Policy 配置
	viper.SetDefault("policy.default_allow", true)
	viper.SetDefault("policy.allowlist", []string{})
	viper.SetDefault("policy.blocklist", []string{})

	// Gateway 配置
	viper.SetDefault("gateway.port", 8787)
	viper.SetDefault("gateway.host", "127.0.0.1")
	viper.SetDefault("gateway.rate_limit.enabled", true)
	viper.SetDefault("gateway.rate_limit.requests_per_minute", 60)
	viper.SetDefault("gateway.rate_limit.burst", 10)
}
