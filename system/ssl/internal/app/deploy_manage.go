package app

import (
	"context"
	"strings"
	"time"

	"certsync/base"
	errorc "certsync/pkg/core/err"
	"certsync/pkg/progress"
	"certsync/system/ssl/internal/model"
	"certsync/system/ssl/internal/service"
)

// RenewalOutcome 单条部署的续期执行结果
type RenewalOutcome struct {
	DeploymentID int64  `json:"deploymentId"`
	Success      bool   `json:"success"`
	Phase        string `json:"phase"`
	Error        string `json:"error,omitempty"`
}

// failurePhase 失败发生的阶段，签发阶段成功过则记为部署阶段
func failurePhase(recorder *progress.Recorder) string {
	if recorder.Succeeded(progress.PhaseRenewal) {
		return progress.PhaseDeploy
	}
	return progress.PhaseRenewal
}

// RenewAndDeploy 执行一次完整的续期部署：签发新证书，再部署到目标设备
// 同一部署同时只允许一次执行，抢占失败返回错误；结果中带失败阶段和原因
func (a *App) RenewAndDeploy(ctx context.Context, deploymentID int64, origin model.DeployOrigin) (*RenewalOutcome, error) {
	outcome := &RenewalOutcome{DeploymentID: deploymentID, Phase: progress.PhaseRenewal}

	deployment, err := a.DeploymentDao.FindById(ctx, deploymentID)
	if err != nil {
		wrapped := a.err.New("获取部署记录失败", err)
		outcome.Error = errorc.ParseError(wrapped).RootCause()
		return outcome, wrapped
	}

	acquired, err := a.DeploymentDao.MarkPending(ctx, deploymentID)
	if err != nil {
		outcome.Error = errorc.ParseError(err).RootCause()
		return outcome, err
	}
	if !acquired {
		conflict := a.err.New("该部署正在执行中", nil).ValidWithCtx()
		outcome.Error = errorc.ParseError(conflict).RootCause()
		return outcome, conflict
	}

	log := a.log.WithTrace(ctx)
	log.WithFields(map[string]interface{}{
		"deployment_id": deploymentID,
		"origin":        origin,
	}).Info("开始续期部署")

	recorder := progress.NewRecorder(log)
	startTime := time.Now()

	cert, deployErr := a.runPipeline(ctx, deployment, recorder)
	detail := strings.Join(recorder.Tail(10), "\n")
	durationMillis := time.Since(startTime).Milliseconds()

	var certID *int64
	if cert != nil {
		id := cert.ID
		certID = &id
	}

	if deployErr != nil {
		phase := failurePhase(recorder)
		message := errorc.ParseError(deployErr).RootCause()
		outcome.Phase = phase
		outcome.Error = message

		if markErr := a.DeploymentDao.MarkFailure(ctx, deploymentID, message, detail); markErr != nil {
			a.log.WithErr(markErr).Error("标记部署失败状态失败")
		}
		a.recordHistory(ctx, deploymentID, certID, origin, phase, 0, detail, message, durationMillis)
		a.recordAudit(ctx, "renew_and_deploy_failed", deploymentID, origin, message)
		return outcome, deployErr
	}

	leadDays := deployment.RenewalLeadDays
	if leadDays <= 0 {
		leadDays = base.Configures.Config.Renewal.LeadDays
	}
	nextRenewal := service.NextRenewalDate(*cert.NotAfter, leadDays)

	if markErr := a.DeploymentDao.MarkSuccess(ctx, deploymentID, cert.ID, nextRenewal, detail); markErr != nil {
		a.log.WithErr(markErr).Error("标记部署成功状态失败")
	}
	a.recordHistory(ctx, deploymentID, certID, origin, progress.PhaseDeploy, 1, detail, "", durationMillis)
	a.recordAudit(ctx, "renew_and_deploy", deploymentID, origin, "证书续期部署成功")

	log.WithFields(map[string]interface{}{
		"deployment_id": deploymentID,
		"certificate":   cert.ID,
		"next_renewal":  nextRenewal,
	}).Info("续期部署完成")

	outcome.Success = true
	outcome.Phase = progress.PhaseDeploy
	return outcome, nil
}

// runPipeline 两阶段执行：证书签发阶段失败时不触碰目标设备
func (a *App) runPipeline(ctx context.Context, deployment *model.Deployment, recorder *progress.Recorder) (*model.Certificate, error) {
	credential, err := a.DnsCredentialDao.FindById(ctx, deployment.DnsCredentialID)
	if err != nil {
		recorder.Errorf(progress.PhaseRenewal, "获取DNS凭证失败")
		return nil, a.err.New("获取DNS凭证失败", err)
	}
	if credential.Status != 1 {
		recorder.Errorf(progress.PhaseRenewal, "DNS凭证已禁用")
		return nil, a.err.New("DNS凭证已禁用", nil).ValidWithCtx()
	}

	target, err := a.TargetSystemDao.FindById(ctx, deployment.TargetSystemID)
	if err != nil {
		recorder.Errorf(progress.PhaseRenewal, "获取目标设备失败")
		return nil, a.err.New("获取目标设备失败", err)
	}
	if target.Status != 1 {
		recorder.Errorf(progress.PhaseRenewal, "目标设备已禁用")
		return nil, a.err.New("目标设备已禁用", nil).ValidWithCtx()
	}

	// 阶段一：签发证书
	cert, err := a.CertificateSvc.Issue(ctx, []string(deployment.Domains), credential, recorder)
	if err != nil {
		recorder.Errorf(progress.PhaseRenewal, "证书签发失败: %s", errorc.ParseError(err).RootCause())
		return nil, err
	}
	recorder.Successf(progress.PhaseRenewal, "证书签发成功")

	// 阶段二：部署到目标设备
	if err := a.deployToTarget(ctx, cert, target, recorder); err != nil {
		recorder.Errorf(progress.PhaseDeploy, "部署失败: %s", errorc.ParseError(err).RootCause())
		return cert, err
	}
	recorder.Successf(progress.PhaseDeploy, "证书部署成功")
	return cert, nil
}

// deployToTarget 在目标设备上执行导入、配置、提交、校验、清理
func (a *App) deployToTarget(ctx context.Context, cert *model.Certificate, target *model.TargetSystem, recorder *progress.Recorder) error {
	material, err := a.CertificateSvc.Material(cert)
	if err != nil {
		return err
	}

	password, err := a.CryptoService.Decrypt(target.Password)
	if err != nil {
		return err
	}
	apiToken, err := a.CryptoService.Decrypt(target.ApiToken)
	if err != nil {
		return err
	}

	client, err := service.NewFirewallClient(target, password, apiToken, a.log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	deployCfg := base.Configures.Config.Deploy
	certName := service.GenerateCertName(deployCfg.CertNamePrefix, time.Now())
	deployMaterial := &service.DeployMaterial{
		ChainPEM: []byte(material.ChainPEM),
		KeyPEM:   []byte(material.PrivateKeyPEM),
	}

	// SonicWall 只支持从外部地址拉取 PKCS#12 文件
	if target.Vendor == model.VendorSonicWall {
		pfxData, pkgErr := a.Pkcs12Service.Package(deployMaterial.ChainPEM, deployMaterial.KeyPEM, deployCfg.PfxPassword)
		if pkgErr != nil {
			return pkgErr
		}
		recorder.Infof(progress.PhaseDeploy, "上传证书文件到FTP中转")
		staged, stageErr := a.FtpStager.Stage(ctx, certName, pfxData)
		if stageErr != nil {
			return stageErr
		}
		defer a.FtpStager.Remove(ctx, staged)
		deployMaterial.Pkcs12URL = staged.URL
		deployMaterial.Pkcs12Password = deployCfg.PfxPassword
	}

	recorder.Infof(progress.PhaseDeploy, "导入证书 %s 到 %s", certName, target.Host)
	if err := client.ImportCertificate(ctx, certName, deployMaterial); err != nil {
		return err
	}

	recorder.Infof(progress.PhaseDeploy, "切换服务证书")
	if err := client.ConfigureService(ctx, certName); err != nil {
		return err
	}

	recorder.Infof(progress.PhaseDeploy, "提交配置")
	if err := client.Commit(ctx); err != nil {
		return err
	}

	recorder.Infof(progress.PhaseDeploy, "校验证书生效状态")
	active, err := client.VerifyActive(ctx, certName)
	if err != nil {
		return err
	}
	if !active {
		return a.err.New("证书未在目标设备上生效", nil).DeployVerify()
	}

	// 校验通过才清理旧证书，失败不阻断
	recorder.Infof(progress.PhaseDeploy, "清理历史证书")
	if err := client.CleanupOldCertificates(ctx, certName); err != nil {
		a.log.WithErr(err).Warn("清理历史证书失败")
		recorder.Warnf(progress.PhaseDeploy, "清理历史证书失败")
	}
	return nil
}

// TestTargetConnection 测试目标设备连通性
func (a *App) TestTargetConnection(ctx context.Context, targetID int64) error {
	target, err := a.TargetSystemDao.FindById(ctx, targetID)
	if err != nil {
		return a.err.New("获取目标设备失败", err)
	}
	password, err := a.CryptoService.Decrypt(target.Password)
	if err != nil {
		return err
	}
	apiToken, err := a.CryptoService.Decrypt(target.ApiToken)
	if err != nil {
		return err
	}
	client, err := service.NewFirewallClient(target, password, apiToken, a.log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)
	return client.TestConnection(ctx)
}

func (a *App) recordHistory(ctx context.Context, deploymentID int64, certID *int64, origin model.DeployOrigin, phase string, success int, detail, errorMessage string, durationMillis int64) {
	history := &model.DeployHistory{
		DeploymentID:   deploymentID,
		CertificateID:  certID,
		Origin:         origin,
		Phase:          phase,
		Success:        success,
		Detail:         detail,
		ErrorMessage:   errorMessage,
		DurationMillis: durationMillis,
	}
	if err := a.DeployHistoryDao.Create(ctx, history); err != nil {
		a.log.WithErr(err).Error("记录部署历史失败")
	}
}

func (a *App) recordAudit(ctx context.Context, operation string, entityID int64, origin model.DeployOrigin, detail string) {
	entry := &model.AuditLog{
		Operation: operation,
		Entity:    "deployment",
		EntityID:  entityID,
		Origin:    origin,
		Detail:    detail,
	}
	if err := a.AuditLogDao.Create(ctx, entry); err != nil {
		a.log.WithErr(err).Error("记录审计日志失败")
	}
}
