package model

import (
	"certsync/pkg/core/model/common"
)

// DnsCredential DNS 服务商凭证模型
type DnsCredential struct {
	common.Model
	Name        string       `gorm:"size:100;not null" json:"name" comment:"凭证名称"`
	Provider    DnsProvider  `gorm:"size:50;not null;index" json:"provider" comment:"DNS 服务商类型(cloudflare/digitalocean)"`
	ApiToken    string       `gorm:"type:text;not null" json:"api_token" comment:"API Token（加密存储）"`
	ExtraConfig *common.JSON `gorm:"type:json" json:"extra_config,omitempty" comment:"额外配置（JSON，如 zone_id 等）"`
	Status      int          `gorm:"default:1;not null;index" json:"status" comment:"状态：1=启用，0=禁用"`
	Description string       `gorm:"size:500" json:"description" comment:"凭证描述"`
}

// TableName 指定表名
func (DnsCredential) TableName() string {
	return "ssl_dns_credentials"
}

// ZoneID 从额外配置中读取 zone_id，没有则返回空串
func (c *DnsCredential) ZoneID() string {
	if c.ExtraConfig == nil {
		return ""
	}
	if v, ok := (*c.ExtraConfig)["zone_id"].(string); ok {
		return v
	}
	return ""
}
