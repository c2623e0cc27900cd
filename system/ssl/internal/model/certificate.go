package model

import (
	"time"

	"certsync/pkg/core/model/common"
)

// Certificate 已签发的 SSL 证书
type Certificate struct {
	common.Model
	Domains      common.StringList `gorm:"type:json;not null" json:"domains" comment:"证书域名列表，首个为 CN"`
	Status       CertificateStatus `gorm:"size:50;not null;index;default:'pending'" json:"status" comment:"证书状态"`
	Issuer       string            `gorm:"size:200" json:"issuer" comment:"签发机构"`
	SerialNumber string            `gorm:"size:100" json:"serial_number" comment:"证书序列号"`
	NotBefore    *time.Time        `json:"not_before" comment:"生效时间"`
	NotAfter     *time.Time        `gorm:"index" json:"not_after" comment:"过期时间"`
	ChainPem     string            `gorm:"type:longtext" json:"chain_pem" comment:"完整证书链 PEM（叶子在前）"`
	PrivkeyPem   string            `gorm:"type:longtext" json:"-" comment:"私钥 PEM（加密存储）"`
	LastError    string            `gorm:"type:text" json:"last_error" comment:"最后一次错误信息"`
}

// TableName 指定表名
func (Certificate) TableName() string {
	return "ssl_certificates"
}

// CertificateMaterial 部署到目标设备所需的证书材料
// ChainPEM 为叶子在前的完整链；LeafPEM 为链中第一个证书
type CertificateMaterial struct {
	Domains       []string
	LeafPEM       string
	ChainPEM      string
	PrivateKeyPEM string
	NotAfter      time.Time
}
