package config

// CryptoConfig 敏感字段落库加密配置
type CryptoConfig struct {
	// Salt AES 密钥派生盐值
	Salt string `yaml:"salt"`
}
