package model

// DnsProvider DNS 服务商类型
type DnsProvider string

const (
	// DnsProviderCloudflare Cloudflare
	DnsProviderCloudflare DnsProvider = "cloudflare"
	// DnsProviderDigitalOcean DigitalOcean
	DnsProviderDigitalOcean DnsProvider = "digitalocean"
)

// FirewallVendor 防火墙厂商类型
type FirewallVendor string

const (
	// VendorFortiGate FortiGate REST API
	VendorFortiGate FirewallVendor = "fortigate"
	// VendorSonicWall SonicWall SonicOS API
	VendorSonicWall FirewallVendor = "sonicwall"
	// VendorPanOs Palo Alto PAN-OS XML API
	VendorPanOs FirewallVendor = "panos"
)

// CertificateStatus 证书状态
type CertificateStatus string

const (
	// CertStatusPending 签发中
	CertStatusPending CertificateStatus = "pending"
	// CertStatusIssued 已签发
	CertStatusIssued CertificateStatus = "issued"
	// CertStatusFailed 签发失败
	CertStatusFailed CertificateStatus = "failed"
)

// DeploymentStatus 部署状态
// pending 同时充当续期流程的占位锁，扫描到期部署时会跳过 pending 记录
type DeploymentStatus string

const (
	// DeployStatusPending 续期部署进行中
	DeployStatusPending DeploymentStatus = "pending"
	// DeployStatusActive 证书已在目标设备上生效
	DeployStatusActive DeploymentStatus = "active"
	// DeployStatusFailed 最近一次续期部署失败
	DeployStatusFailed DeploymentStatus = "failed"
)

// DeployOrigin 续期部署的触发来源
type DeployOrigin string

const (
	// OriginAPI 手动通过接口触发
	OriginAPI DeployOrigin = "api"
	// OriginScheduler 自动续期调度触发
	OriginScheduler DeployOrigin = "scheduler"
)
