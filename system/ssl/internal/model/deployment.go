package model

import (
	"time"

	"certsync/pkg/core/model/common"
)

// Deployment 一条证书续期部署记录：域名集合 + DNS 凭证 + 目标设备
// 自动续期调度以它为单位扫描和执行
type Deployment struct {
	common.Model
	Name               string            `gorm:"size:100;not null" json:"name" comment:"部署名称"`
	Domains            common.StringList `gorm:"type:json;not null" json:"domains" comment:"证书域名列表，首个为 CN"`
	DnsCredentialID    int64             `gorm:"not null;index" json:"dns_credential_id" comment:"DNS 凭证 ID"`
	TargetSystemID     int64             `gorm:"not null;index" json:"target_system_id" comment:"目标设备 ID"`
	CertificateID      *int64            `gorm:"index" json:"certificate_id" comment:"当前生效的证书 ID"`
	Status             DeploymentStatus  `gorm:"size:50;not null;index;default:'active'" json:"status" comment:"部署状态"`
	AutoRenewalEnabled int               `gorm:"default:1;not null;index" json:"auto_renewal_enabled" comment:"是否自动续期：1=是，0=否"`
	RenewalLeadDays    int               `gorm:"default:30;not null" json:"renewal_lead_days" comment:"到期前多少天续期"`
	NextRenewalDate    *time.Time        `gorm:"index" json:"next_renewal_date" comment:"下次续期时间"`
	LastDeployedAt     *time.Time        `json:"last_deployed_at" comment:"最后一次成功部署时间"`
	LastError          string            `gorm:"type:text" json:"last_error" comment:"最后一次错误信息"`
	Detail             string            `gorm:"type:text" json:"detail" comment:"最近一次执行的进度摘要"`
	Description        string            `gorm:"size:500" json:"description" comment:"部署描述"`
}

// TableName 指定表名
func (Deployment) TableName() string {
	return "ssl_deployments"
}
