package ssl

import (
	"context"

	"certsync/system/ssl/internal/app"
	"certsync/system/ssl/internal/model"
)

// Module SSL 证书组件模块门面（对外暴露的根对象）
// 封装内部 app，只暴露组装根和调度任务需要的能力
type Module struct {
	// internalApp 内部应用实例，不对外暴露，仅供组件内部使用
	internalApp *app.App
}

// NewModule 创建 SSL 证书模块实例
func NewModule() *Module {
	return &Module{
		internalApp: app.NewApp(),
	}
}

// StartRenewalScheduler 启动自动续期调度
func (m *Module) StartRenewalScheduler() {
	m.internalApp.RenewalScheduler.Start()
}

// StopRenewalScheduler 停止自动续期调度
func (m *Module) StopRenewalScheduler() {
	m.internalApp.RenewalScheduler.Stop()
}

// RenewAndDeploy 执行指定部署的续期，供调度器任务调用
func (m *Module) RenewAndDeploy(ctx context.Context, deploymentID int64) error {
	_, err := m.internalApp.RenewAndDeploy(ctx, deploymentID, model.OriginScheduler)
	return err
}

// PruneAuditLogs 清理保留期之外的审计日志，供定时任务调用
func (m *Module) PruneAuditLogs(ctx context.Context, retentionDays int) (int64, error) {
	return m.internalApp.PruneAuditLogs(ctx, retentionDays)
}
