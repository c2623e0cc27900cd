package config

// FtpConfig 证书中转用的 FTP 服务器配置，防火墙从这里拉取 PKCS#12 文件
type FtpConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// Path 上传目录，防火墙侧可读
	Path string `yaml:"path"`
}

// DeployConfig 证书部署配置
type DeployConfig struct {
	Ftp FtpConfig `yaml:"ftp"`
	// PfxPassword 生成 PKCS#12 文件时使用的口令
	PfxPassword string `yaml:"pfx-password"`
	// CertNamePrefix 部署到设备上的证书名前缀
	CertNamePrefix string `yaml:"cert-name-prefix"`
}

// DefaultDeployConfig 返回默认配置
func DefaultDeployConfig() DeployConfig {
	return DeployConfig{
		Ftp: FtpConfig{
			Port: 21,
			Path: "/certs",
		},
		CertNamePrefix: "SSL-VPN",
	}
}
