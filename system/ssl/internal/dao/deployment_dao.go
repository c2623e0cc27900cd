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

// DeploymentDao 部署记录数据访问层
type DeploymentDao struct {
	mvc.IBaseDao[model.Deployment]
	db  *gorm.DB
	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewDeploymentDao 创建部署记录 DAO 实例
func NewDeploymentDao(db *gorm.DB, log *logger.Log) *DeploymentDao {
	return &DeploymentDao{
		IBaseDao: mvc.NewGormDao[model.Deployment](db),
		db:       db,
		log:      log.WithEntryName("DeploymentDao"),
		err:      errorc.NewErrorBuilder("DeploymentDao"),
	}
}

// FindDueForRenewal 查询到期需要续期的部署
// 查询条件：
// 1. 自动续期开启
// 2. 下次续期时间已到
// 3. 状态不为 pending（pending 表示有流程正在执行，充当占位锁）
func (d *DeploymentDao) FindDueForRenewal(ctx context.Context, now time.Time) ([]*model.Deployment, error) {
	var deployments []*model.Deployment
	err := d.db.WithContext(ctx).
		Where("auto_renewal_enabled = ?", 1).
		Where("next_renewal_date IS NOT NULL").
		Where("next_renewal_date <= ?", now).
		Where("status <> ?", model.DeployStatusPending).
		Find(&deployments).Error

	if err != nil {
		d.log.WithErr(err).Error("查询到期部署失败")
		return nil, d.err.New("查询到期部署失败", err).DB()
	}

	return deployments, nil
}

// MarkPending 将部署标记为 pending，返回是否抢占成功
// 已处于 pending 的记录不会被二次标记，防止并发重复执行
func (d *DeploymentDao) MarkPending(ctx context.Context, id int64) (bool, error) {
	result := d.db.WithContext(ctx).Model(&model.Deployment{}).
		Where("id = ?", id).
		Where("status <> ?", model.DeployStatusPending).
		Update("status", model.DeployStatusPending)
	if result.Error != nil {
		d.log.WithErr(result.Error).WithField("id", id).Error("标记部署为进行中失败")
		return false, d.err.New("标记部署为进行中失败", result.Error).DB()
	}
	return result.RowsAffected > 0, nil
}

// MarkSuccess 记录一次成功的续期部署结果
func (d *DeploymentDao) MarkSuccess(ctx context.Context, id int64, certificateID int64, nextRenewal time.Time, detail string) error {
	now := time.Now()
	err := d.db.WithContext(ctx).Model(&model.Deployment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            model.DeployStatusActive,
			"certificate_id":    certificateID,
			"next_renewal_date": nextRenewal,
			"last_deployed_at":  now,
			"last_error":        "",
			"detail":            detail,
		}).Error
	if err != nil {
		d.log.WithErr(err).WithField("id", id).Error("记录部署成功结果失败")
		return d.err.New("记录部署成功结果失败", err).DB()
	}
	return nil
}

// MarkFailure 记录一次失败的续期部署结果
func (d *DeploymentDao) MarkFailure(ctx context.Context, id int64, message, detail string) error {
	err := d.db.WithContext(ctx).Model(&model.Deployment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.DeployStatusFailed,
			"last_error": message,
			"detail":     detail,
		}).Error
	if err != nil {
		d.log.WithErr(err).WithField("id", id).Error("记录部署失败结果失败")
		return d.err.New("记录部署失败结果失败", err).DB()
	}
	return nil
}
