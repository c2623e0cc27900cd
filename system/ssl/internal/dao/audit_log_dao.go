package dao

import (
	"context"
	"time"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/pkg/core/mvc"
	"certsync/system/ssl/internal/model"

	"gorm.io/gorm"
)

// AuditLogDao 审计日志数据访问层
type AuditLogDao struct {
	mvc.IBaseDao[model.AuditLog]
	db  *gorm.DB
	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewAuditLogDao 创建审计日志 DAO 实例
func NewAuditLogDao(db *gorm.DB, log *logger.Log) *AuditLogDao {
	return &AuditLogDao{
		IBaseDao: mvc.NewGormDao[model.AuditLog](db),
		db:       db,
		log:      log.WithEntryName("AuditLogDao"),
		err:      errorc.NewErrorBuilder("AuditLogDao"),
	}
}

// DeleteBefore 物理删除指定时间之前的审计日志，返回删除条数
func (d *AuditLogDao) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&model.AuditLog{})
	if result.Error != nil {
		d.log.WithErr(result.Error).Error("清理审计日志失败")
		return 0, d.err.New("清理审计日志失败", result.Error).DB()
	}
	return result.RowsAffected, nil
}
