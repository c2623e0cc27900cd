package config

// RenewalConfig 证书自动续期配置
type RenewalConfig struct {
	// CheckIntervalHours 续期扫描间隔（小时）
	CheckIntervalHours int `yaml:"check-interval-hours"`
	// LeadDays 到期前多少天开始续期
	LeadDays int `yaml:"lead-days"`
	// ErrorBackoffMinutes 扫描出错后的退避时间（分钟）
	ErrorBackoffMinutes int `yaml:"error-backoff-minutes"`
}

// DefaultRenewalConfig 返回默认配置
func DefaultRenewalConfig() RenewalConfig {
	return RenewalConfig{
		CheckIntervalHours:  12,
		LeadDays:            30,
		ErrorBackoffMinutes: 5,
	}
}
