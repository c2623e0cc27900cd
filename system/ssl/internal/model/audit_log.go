package model

import (
	"certsync/pkg/core/model/common"
)

// AuditLog 操作审计日志，由定时任务按保留期清理
type AuditLog struct {
	common.Model
	Operation string       `gorm:"size:100;not null;index" json:"operation" comment:"操作名"`
	Entity    string       `gorm:"size:100;not null" json:"entity" comment:"操作对象类型"`
	EntityID  int64        `gorm:"index" json:"entity_id" comment:"操作对象 ID"`
	Origin    DeployOrigin `gorm:"size:50;not null" json:"origin" comment:"来源(api/scheduler)"`
	Detail    string       `gorm:"type:text" json:"detail" comment:"操作详情"`
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "ssl_audit_logs"
}
