package app

import (
	"context"
	"time"
)

// PruneAuditLogs 删除保留期之外的审计日志，返回删除条数
func (a *App) PruneAuditLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := a.AuditLogDao.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		a.log.WithField("Deleted", deleted).Info("审计日志清理完成")
	}
	return deleted, nil
}
