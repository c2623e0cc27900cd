package dao

import (
	"context"
	"fmt"
	"testing"
	"time"

	"certsync/pkg/core/logger"
	"certsync/pkg/core/model/common"
	"certsync/system/ssl/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Deployment{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

func seedDeployment(t *testing.T, d *DeploymentDao, status model.DeploymentStatus, enabled int, next *time.Time) int64 {
	t.Helper()
	deployment := &model.Deployment{
		Name:               "vpn-portal",
		Domains:            common.StringList{"vpn.example.com"},
		DnsCredentialID:    1,
		TargetSystemID:     1,
		Status:             status,
		AutoRenewalEnabled: enabled,
		NextRenewalDate:    next,
	}
	if err := d.Create(context.Background(), deployment); err != nil {
		t.Fatalf("创建部署记录失败: %v", err)
	}
	return deployment.ID
}

func TestFindDueForRenewal(t *testing.T) {
	d := NewDeploymentDao(newTestDB(t), logger.GetLogger())
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	longPast := now.Add(-30 * 24 * time.Hour)
	future := now.Add(24 * time.Hour)

	dueID := seedDeployment(t, d, model.DeployStatusActive, 1, &past)
	failedDueID := seedDeployment(t, d, model.DeployStatusFailed, 1, &past)
	// pending 充当占位锁，哪怕早已过期也不应重复扫出
	seedDeployment(t, d, model.DeployStatusPending, 1, &longPast)
	seedDeployment(t, d, model.DeployStatusActive, 0, &past)
	seedDeployment(t, d, model.DeployStatusActive, 1, &future)
	seedDeployment(t, d, model.DeployStatusActive, 1, nil)

	due, err := d.FindDueForRenewal(context.Background(), now)
	if err != nil {
		t.Fatalf("查询到期部署失败: %v", err)
	}

	got := make(map[int64]bool, len(due))
	for _, deployment := range due {
		got[deployment.ID] = true
	}
	if len(due) != 2 || !got[dueID] || !got[failedDueID] {
		t.Fatalf("到期部署不符, 期望 [%d %d], 实际 %v", dueID, failedDueID, got)
	}
}

func TestMarkPendingContention(t *testing.T) {
	d := NewDeploymentDao(newTestDB(t), logger.GetLogger())
	past := time.Now().Add(-24 * time.Hour)
	id := seedDeployment(t, d, model.DeployStatusActive, 1, &past)

	acquired, err := d.MarkPending(context.Background(), id)
	if err != nil {
		t.Fatalf("标记失败: %v", err)
	}
	if !acquired {
		t.Fatal("首次标记应抢占成功")
	}

	acquired, err = d.MarkPending(context.Background(), id)
	if err != nil {
		t.Fatalf("标记失败: %v", err)
	}
	if acquired {
		t.Fatal("已处于 pending 的记录不应被二次抢占")
	}

	if err := d.MarkFailure(context.Background(), id, "boom", ""); err != nil {
		t.Fatalf("记录失败结果失败: %v", err)
	}
	acquired, err = d.MarkPending(context.Background(), id)
	if err != nil {
		t.Fatalf("标记失败: %v", err)
	}
	if !acquired {
		t.Fatal("失败状态的记录应可重新抢占")
	}
}

func TestMarkSuccessClearsError(t *testing.T) {
	d := NewDeploymentDao(newTestDB(t), logger.GetLogger())
	past := time.Now().Add(-24 * time.Hour)
	id := seedDeployment(t, d, model.DeployStatusActive, 1, &past)

	if err := d.MarkFailure(context.Background(), id, "boom", "detail"); err != nil {
		t.Fatalf("记录失败结果失败: %v", err)
	}

	next := time.Now().AddDate(0, 2, 0)
	if err := d.MarkSuccess(context.Background(), id, 7, next, "ok"); err != nil {
		t.Fatalf("记录成功结果失败: %v", err)
	}

	deployment, err := d.FindById(context.Background(), id)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if deployment.Status != model.DeployStatusActive {
		t.Errorf("状态不符: %s", deployment.Status)
	}
	if deployment.LastError != "" {
		t.Errorf("成功后应清空错误信息: %s", deployment.LastError)
	}
	if deployment.CertificateID == nil || *deployment.CertificateID != 7 {
		t.Errorf("证书 ID 不符: %v", deployment.CertificateID)
	}
}
