package dao

import (
	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/pkg/core/mvc"
	"certsync/system/ssl/internal/model"

	"gorm.io/gorm"
)

// DnsCredentialDao DNS 凭证数据访问层
type DnsCredentialDao struct {
	mvc.IBaseDao[model.DnsCredential]
	db  *gorm.DB
	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewDnsCredentialDao 创建 DNS 凭证 DAO 实例
func NewDnsCredentialDao(db *gorm.DB, log *logger.Log) *DnsCredentialDao {
	return &DnsCredentialDao{
		IBaseDao: mvc.NewGormDao[model.DnsCredential](db),
		db:       db,
		log:      log.WithEntryName("DnsCredentialDao"),
		err:      errorc.NewErrorBuilder("DnsCredentialDao"),
	}
}
