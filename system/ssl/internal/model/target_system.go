package model

import (
	"certsync/pkg/core/model/common"
)

// TargetSystem 证书部署目标设备（防火墙）
type TargetSystem struct {
	common.Model
	Name          string         `gorm:"size:100;not null" json:"name" comment:"目标名称"`
	Vendor        FirewallVendor `gorm:"size:50;not null;index" json:"vendor" comment:"厂商类型(fortigate/sonicwall/panos)"`
	Host          string         `gorm:"size:200;not null" json:"host" comment:"管理地址"`
	Port          int            `gorm:"default:443;not null" json:"port" comment:"管理端口"`
	Username      string         `gorm:"size:100" json:"username" comment:"管理用户名（SonicWall/PAN-OS）"`
	Password      string         `gorm:"type:text" json:"-" comment:"管理密码（加密存储）"`
	ApiToken      string         `gorm:"type:text" json:"-" comment:"API Token 或 Key（加密存储，FortiGate/PAN-OS）"`
	SkipTlsVerify int            `gorm:"default:1;not null" json:"skip_tls_verify" comment:"是否跳过证书校验：1=是，0=否"`
	ExtraConfig   *common.JSON   `gorm:"type:json" json:"extra_config,omitempty" comment:"厂商特定配置（JSON）"`
	Status        int            `gorm:"default:1;not null;index" json:"status" comment:"状态：1=启用，0=禁用"`
	Description   string         `gorm:"size:500" json:"description" comment:"目标描述"`
}

// TableName 指定表名
func (TargetSystem) TableName() string {
	return "ssl_target_systems"
}
