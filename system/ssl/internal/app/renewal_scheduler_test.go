package app

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"certsync/pkg/core/config"
	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/pkg/core/model/common"
	"certsync/pkg/progress"
	"certsync/system/ssl/internal/dao"
	"certsync/system/ssl/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(
		&model.DnsCredential{},
		&model.TargetSystem{},
		&model.Certificate{},
		&model.Deployment{},
		&model.DeployHistory{},
		&model.AuditLog{},
	); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}

	log := logger.GetLogger()
	return &App{
		DnsCredentialDao: dao.NewDnsCredentialDao(db, log),
		CertificateDao:   dao.NewCertificateDao(db, log),
		TargetSystemDao:  dao.NewTargetSystemDao(db, log),
		DeploymentDao:    dao.NewDeploymentDao(db, log),
		DeployHistoryDao: dao.NewDeployHistoryDao(db, log),
		AuditLogDao:      dao.NewAuditLogDao(db, log),
		log:              log,
		err:              errorc.NewErrorBuilder("SslApp"),
	}
}

func seedDueDeployment(t *testing.T, a *App) int64 {
	t.Helper()
	past := time.Now().Add(-24 * time.Hour)
	deployment := &model.Deployment{
		Name:               "vpn-portal",
		Domains:            common.StringList{"vpn.example.com"},
		DnsCredentialID:    999,
		TargetSystemID:     999,
		Status:             model.DeployStatusActive,
		AutoRenewalEnabled: 1,
		NextRenewalDate:    &past,
	}
	if err := a.DeploymentDao.Create(context.Background(), deployment); err != nil {
		t.Fatalf("创建部署记录失败: %v", err)
	}
	return deployment.ID
}

func TestFailurePhase(t *testing.T) {
	recorder := progress.NewRecorder(logger.GetLogger())
	if got := failurePhase(recorder); got != progress.PhaseRenewal {
		t.Errorf("签发未成功时阶段应为 %s, 实际 %s", progress.PhaseRenewal, got)
	}

	recorder.Successf(progress.PhaseRenewal, "证书签发成功")
	if got := failurePhase(recorder); got != progress.PhaseDeploy {
		t.Errorf("签发成功后失败阶段应为 %s, 实际 %s", progress.PhaseDeploy, got)
	}
}

func TestRunCheckReportsPerDeploymentOutcome(t *testing.T) {
	app := newTestApp(t)
	scheduler := NewRenewalScheduler(app, config.RenewalConfig{CheckIntervalHours: 12})
	id := seedDueDeployment(t, app)

	results, err := scheduler.runCheck(context.Background(), model.OriginScheduler)
	if err != nil {
		t.Fatalf("扫描失败: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("结果数量不符: %d", len(results))
	}

	outcome := results[0]
	if outcome.DeploymentID != id {
		t.Errorf("部署 ID 不符: %d", outcome.DeploymentID)
	}
	if outcome.Success {
		t.Error("凭证缺失时应为失败")
	}
	if outcome.Phase != progress.PhaseRenewal {
		t.Errorf("失败阶段不符: %s", outcome.Phase)
	}
	if outcome.Error == "" {
		t.Error("失败结果应带错误信息")
	}

	deployment, err := app.DeploymentDao.FindById(context.Background(), id)
	if err != nil {
		t.Fatalf("查询部署失败: %v", err)
	}
	if deployment.Status != model.DeployStatusFailed {
		t.Errorf("部署状态不符: %s", deployment.Status)
	}
}

func TestRunCheckRecordsBatchSummary(t *testing.T) {
	app := newTestApp(t)
	scheduler := NewRenewalScheduler(app, config.RenewalConfig{CheckIntervalHours: 12})
	seedDueDeployment(t, app)

	if _, err := scheduler.runCheck(context.Background(), model.OriginScheduler); err != nil {
		t.Fatalf("扫描失败: %v", err)
	}

	batches, err := app.AuditLogDao.FindByMap(context.Background(), map[string]interface{}{
		"operation": "renewal_check",
	})
	if err != nil {
		t.Fatalf("查询审计日志失败: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("批次审计数量不符: %d", len(batches))
	}
	batch := batches[0]
	if batch.Origin != model.OriginScheduler {
		t.Errorf("来源不符: %s", batch.Origin)
	}
	if !strings.Contains(batch.Detail, "到期 1") || !strings.Contains(batch.Detail, "失败 1") {
		t.Errorf("批次详情不符: %s", batch.Detail)
	}
}

func TestRunManualCheckUsesApiOrigin(t *testing.T) {
	app := newTestApp(t)
	app.RenewalScheduler = NewRenewalScheduler(app, config.RenewalConfig{CheckIntervalHours: 12})

	results, err := app.RenewalScheduler.RunManualCheck(context.Background())
	if err != nil {
		t.Fatalf("手动扫描失败: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("无到期部署时结果应为空: %v", results)
	}

	batches, err := app.AuditLogDao.FindByMap(context.Background(), map[string]interface{}{
		"operation": "renewal_check",
	})
	if err != nil {
		t.Fatalf("查询审计日志失败: %v", err)
	}
	if len(batches) != 1 || batches[0].Origin != model.OriginAPI {
		t.Fatalf("手动扫描应记录 api 来源的批次审计: %v", batches)
	}
}
