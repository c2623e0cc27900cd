package dao

import (
	"context"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/pkg/core/mvc"
	"certsync/system/ssl/internal/model"

	"gorm.io/gorm"
)

// DeployHistoryDao 部署历史数据访问层
type DeployHistoryDao struct {
	mvc.IBaseDao[model.DeployHistory]
	db  *gorm.DB
	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewDeployHistoryDao 创建部署历史 DAO 实例
func NewDeployHistoryDao(db *gorm.DB, log *logger.Log) *DeployHistoryDao {
	return &DeployHistoryDao{
		IBaseDao: mvc.NewGormDao[model.DeployHistory](db),
		db:       db,
		log:      log.WithEntryName("DeployHistoryDao"),
		err:      errorc.NewErrorBuilder("DeployHistoryDao"),
	}
}

// FindByDeployment 分页查询某个部署的执行历史，按时间倒序
func (d *DeployHistoryDao) FindByDeployment(ctx context.Context, deploymentID int64, page *mvc.Page) ([]*model.DeployHistory, int64, error) {
	var histories []*model.DeployHistory
	var total int64

	db := d.db.WithContext(ctx).Model(&model.DeployHistory{}).
		Where("deployment_id = ?", deploymentID)

	if err := db.Count(&total).Error; err != nil {
		d.log.WithErr(err).WithField("deploymentID", deploymentID).Error("统计部署历史失败")
		return nil, 0, d.err.New("统计部署历史失败", err).DB()
	}

	offset, size := page.Paginate()
	err := db.Order("id DESC").Offset(offset).Limit(size).Find(&histories).Error
	if err != nil {
		d.log.WithErr(err).WithField("deploymentID", deploymentID).Error("查询部署历史失败")
		return nil, 0, d.err.New("查询部署历史失败", err).DB()
	}

	return histories, total, nil
}
