package dao

import (
	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/pkg/core/mvc"
	"certsync/system/ssl/internal/model"

	"gorm.io/gorm"
)

// TargetSystemDao 部署目标数据访问层
type TargetSystemDao struct {
	mvc.IBaseDao[model.TargetSystem]
	db  *gorm.DB
	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewTargetSystemDao 创建部署目标 DAO 实例
func NewTargetSystemDao(db *gorm.DB, log *logger.Log) *TargetSystemDao {
	return &TargetSystemDao{
		IBaseDao: mvc.NewGormDao[model.TargetSystem](db),
		db:       db,
		log:      log.WithEntryName("TargetSystemDao"),
		err:      errorc.NewErrorBuilder("TargetSystemDao"),
	}
}
