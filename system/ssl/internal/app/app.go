package app

import (
	"certsync/base"
	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/system/ssl/internal/dao"
	"certsync/system/ssl/internal/service"
)

// App SSL 证书组件应用层
// 负责组合/调度 Service，实现证书续期部署的完整流程
type App struct {
	// DAOs
	DnsCredentialDao *dao.DnsCredentialDao
	CertificateDao   *dao.CertificateDao
	TargetSystemDao  *dao.TargetSystemDao
	DeploymentDao    *dao.DeploymentDao
	DeployHistoryDao *dao.DeployHistoryDao
	AuditLogDao      *dao.AuditLogDao

	// Services
	CryptoService  *service.CryptoService
	AcmeService    *service.AcmeService
	CertificateSvc *service.CertificateService
	Pkcs12Service  *service.Pkcs12Service
	FtpStager      *service.FtpStager

	// Scheduler 自动续期调度
	RenewalScheduler *RenewalScheduler

	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewApp 创建 SSL 证书应用层实例
func NewApp() *App {
	log := logger.GetLogger().WithEntryName("SslApp")
	cfg := base.Configures.Config

	// 初始化 DAOs
	dnsCredDao := dao.NewDnsCredentialDao(base.DB, log)
	certDao := dao.NewCertificateDao(base.DB, log)
	targetDao := dao.NewTargetSystemDao(base.DB, log)
	deploymentDao := dao.NewDeploymentDao(base.DB, log)
	historyDao := dao.NewDeployHistoryDao(base.DB, log)
	auditDao := dao.NewAuditLogDao(base.DB, log)

	// 初始化 Services
	cryptoSvc := service.NewCryptoService(cfg.Crypto, log)
	acmeSvc := service.NewAcmeService(cfg.Acme, log)
	certSvc := service.NewCertificateService(certDao, acmeSvc, cryptoSvc, log)
	pkcs12Svc := service.NewPkcs12Service(log)
	ftpStager := service.NewFtpStager(cfg.Deploy.Ftp, log)

	a := &App{
		DnsCredentialDao: dnsCredDao,
		CertificateDao:   certDao,
		TargetSystemDao:  targetDao,
		DeploymentDao:    deploymentDao,
		DeployHistoryDao: historyDao,
		AuditLogDao:      auditDao,
		CryptoService:    cryptoSvc,
		AcmeService:      acmeSvc,
		CertificateSvc:   certSvc,
		Pkcs12Service:    pkcs12Svc,
		FtpStager:        ftpStager,
		log:              log,
		err:              errorc.NewErrorBuilder("SslApp"),
	}
	a.RenewalScheduler = NewRenewalScheduler(a, cfg.Renewal)
	return a
}
