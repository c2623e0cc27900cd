package dao

import (
	"context"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/pkg/core/mvc"
	"certsync/system/ssl/internal/model"

	"gorm.io/gorm"
)

// CertificateDao 证书数据访问层
type CertificateDao struct {
	mvc.IBaseDao[model.Certificate]
	db  *gorm.DB
	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewCertificateDao 创建证书 DAO 实例
func NewCertificateDao(db *gorm.DB, log *logger.Log) *CertificateDao {
	return &CertificateDao{
		IBaseDao: mvc.NewGormDao[model.Certificate](db),
		db:       db,
		log:      log.WithEntryName("CertificateDao"),
		err:      errorc.NewErrorBuilder("CertificateDao"),
	}
}

// UpdateStatus 更新证书状态
func (d *CertificateDao) UpdateStatus(ctx context.Context, id int64, status model.CertificateStatus) error {
	err := d.db.WithContext(ctx).Model(&model.Certificate{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		d.log.WithErr(err).WithField("id", id).WithField("status", status).Error("更新证书状态失败")
		return d.err.New("更新证书状态失败", err).DB()
	}
	return nil
}

// UpdateError 记录证书签发失败原因并置为失败状态
func (d *CertificateDao) UpdateError(ctx context.Context, id int64, message string) error {
	err := d.db.WithContext(ctx).Model(&model.Certificate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.CertStatusFailed,
			"last_error": message,
		}).Error
	if err != nil {
		d.log.WithErr(err).WithField("id", id).Error("更新证书错误信息失败")
		return d.err.New("更新证书错误信息失败", err).DB()
	}
	return nil
}
