package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"certsync/pkg/core/config"
	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/system/ssl/internal/model"
)

// RenewalScheduler 自动续期调度器
// 周期扫描到期部署并顺序执行续期，扫描失败按配置退避后重试
type RenewalScheduler struct {
	app *App
	cfg config.RenewalConfig
	log *logger.Log
	err *errorc.ErrorBuilder

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRenewalScheduler 创建续期调度器
func NewRenewalScheduler(app *App, cfg config.RenewalConfig) *RenewalScheduler {
	return &RenewalScheduler{
		app: app,
		cfg: cfg,
		log: logger.GetLogger().WithEntryName("RenewalScheduler"),
		err: errorc.NewErrorBuilder("RenewalScheduler"),
	}
}

// Start 启动调度循环，重复调用无效果
func (s *RenewalScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop()
	s.log.WithField("IntervalHours", s.cfg.CheckIntervalHours).Info("自动续期调度已启动")
}

// Stop 停止调度循环并等待当前轮次结束
func (s *RenewalScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.log.Info("自动续期调度已停止")
}

// RunManualCheck 立即执行一轮到期扫描，返回每条部署的执行结果
func (s *RenewalScheduler) RunManualCheck(ctx context.Context) ([]RenewalOutcome, error) {
	return s.runCheck(ctx, model.OriginAPI)
}

func (s *RenewalScheduler) loop() {
	defer close(s.doneCh)

	interval := time.Duration(s.cfg.CheckIntervalHours) * time.Hour
	backoff := time.Duration(s.cfg.ErrorBackoffMinutes) * time.Minute

	for {
		wait := interval
		if _, err := s.safeRunCheck(); err != nil {
			s.log.WithErr(err).Error("续期扫描失败，退避后重试")
			wait = backoff
		}

		select {
		case <-s.stopCh:
			return
		case <-time.After(wait):
		}
	}
}

// safeRunCheck 带 panic 恢复的扫描，单轮崩溃不拖垮调度循环
func (s *RenewalScheduler) safeRunCheck() (results []RenewalOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("Panic", r).Error("续期扫描发生panic")
			err = s.err.Internal("续期扫描发生panic")
		}
	}()
	return s.runCheck(context.Background(), model.OriginScheduler)
}

// runCheck 扫描到期部署并顺序执行，单条失败不影响其余部署
// 每轮结束落一条批次审计，记录本轮的成功失败数量
func (s *RenewalScheduler) runCheck(ctx context.Context, origin model.DeployOrigin) ([]RenewalOutcome, error) {
	deployments, err := s.app.DeploymentDao.FindDueForRenewal(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	if len(deployments) == 0 {
		s.log.Debug("没有到期的部署")
		s.recordBatchSummary(ctx, origin, nil)
		return nil, nil
	}

	s.log.WithField("Count", len(deployments)).Info("发现到期部署")
	results := make([]RenewalOutcome, 0, len(deployments))
	for _, deployment := range deployments {
		outcome, err := s.app.RenewAndDeploy(ctx, deployment.ID, origin)
		if err != nil {
			s.log.WithErr(err).WithField("DeploymentID", deployment.ID).Error("自动续期失败")
		}
		results = append(results, *outcome)
	}
	s.recordBatchSummary(ctx, origin, results)
	return results, nil
}

func (s *RenewalScheduler) recordBatchSummary(ctx context.Context, origin model.DeployOrigin, results []RenewalOutcome) {
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	entry := &model.AuditLog{
		Operation: "renewal_check",
		Entity:    "renewal_batch",
		Origin:    origin,
		Detail:    fmt.Sprintf("到期 %d, 成功 %d, 失败 %d", len(results), succeeded, len(results)-succeeded),
	}
	if err := s.app.AuditLogDao.Create(ctx, entry); err != nil {
		s.log.WithErr(err).Error("记录续期批次审计失败")
	}
}
