package model

import (
	"certsync/pkg/core/model/common"
)

// DeployHistory 单次续期部署的执行记录
type DeployHistory struct {
	common.Model
	DeploymentID   int64        `gorm:"not null;index" json:"deployment_id" comment:"部署 ID"`
	CertificateID  *int64       `gorm:"index" json:"certificate_id" comment:"本次签发的证书 ID"`
	Origin         DeployOrigin `gorm:"size:50;not null" json:"origin" comment:"触发来源(api/scheduler)"`
	Phase          string       `gorm:"size:100" json:"phase" comment:"执行到的阶段"`
	Success        int          `gorm:"not null;index" json:"success" comment:"是否成功：1=是，0=否"`
	Detail         string       `gorm:"type:text" json:"detail" comment:"进度事件摘要（最后若干行）"`
	ErrorMessage   string       `gorm:"type:text" json:"error_message" comment:"失败原因"`
	DurationMillis int64        `json:"duration_millis" comment:"耗时（毫秒）"`
}

// TableName 指定表名
func (DeployHistory) TableName() string {
	return "ssl_deploy_histories"
}
