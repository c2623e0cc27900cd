package config

// AcmeConfig ACME 证书签发配置
type AcmeConfig struct {
	// Email ACME 账户邮箱
	Email string `yaml:"email"`
	// DirectoryURL ACME 服务地址，留空使用 Let's Encrypt 生产环境
	DirectoryURL string `yaml:"directory-url"`
	// AccountKeyPath 账户私钥文件路径
	AccountKeyPath string `yaml:"account-key-path"`
	// PropagationWaitSeconds DNS 记录生效前的固定等待时间（秒）
	PropagationWaitSeconds int `yaml:"propagation-wait-seconds"`
	// DNSTimeoutSeconds DNS 质询校验超时时间（秒）
	DNSTimeoutSeconds int `yaml:"dns-timeout-seconds"`
	// FinalizeTimeoutSeconds 证书签发（finalize）等待上限（秒）
	FinalizeTimeoutSeconds int `yaml:"finalize-timeout-seconds"`
	// Nameservers 质询校验使用的递归DNS服务器，host:port
	Nameservers []string `yaml:"nameservers"`
}

// DefaultAcmeConfig 返回默认配置
func DefaultAcmeConfig() AcmeConfig {
	return AcmeConfig{
		AccountKeyPath:         "/etc/certsync/account.key",
		PropagationWaitSeconds: 30,
		DNSTimeoutSeconds:      10,
		FinalizeTimeoutSeconds: 300,
	}
}
