package http

import (
	"strconv"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/pkg/core/model/common"
	"certsync/pkg/core/mvc"
	"certsync/pkg/core/result"
	"certsync/system/ssl/internal/app"
	"certsync/system/ssl/internal/model"
	"certsync/utils"

	"github.com/gofiber/fiber/v2"
)

// SslController SSL 证书后台管理控制器
type SslController struct {
	app *app.App
	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewSslController 创建 SSL 证书控制器实例
func NewSslController(app *app.App) *SslController {
	return &SslController{
		app: app,
		log: logger.GetLogger().WithEntryName("SslController"),
		err: errorc.NewErrorBuilder("SslController"),
	}
}

// RegisterRoutes 注册 SSL 证书相关路由
func (c *SslController) RegisterRoutes(admin fiber.Router) {
	ssl := admin.Group("/ssl")

	// DNS 凭证管理
	dnsCredRouter := ssl.Group("/dns-credentials")
	dnsCredRouter.Post("/", c.CreateDnsCredential)
	dnsCredRouter.Get("/", c.ListDnsCredentials)
	dnsCredRouter.Get("/:id", c.GetDnsCredential)
	dnsCredRouter.Put("/:id", c.UpdateDnsCredential)
	dnsCredRouter.Delete("/:id", c.DeleteDnsCredential)

	// 目标设备管理
	targetRouter := ssl.Group("/target-systems")
	targetRouter.Post("/", c.CreateTargetSystem)
	targetRouter.Get("/", c.ListTargetSystems)
	targetRouter.Get("/:id", c.GetTargetSystem)
	targetRouter.Put("/:id", c.UpdateTargetSystem)
	targetRouter.Delete("/:id", c.DeleteTargetSystem)
	targetRouter.Post("/:id/test-connection", c.TestTargetConnection)

	// 部署管理
	deploymentRouter := ssl.Group("/deployments")
	deploymentRouter.Post("/", c.CreateDeployment)
	deploymentRouter.Get("/", c.ListDeployments)
	deploymentRouter.Get("/:id", c.GetDeployment)
	deploymentRouter.Put("/:id", c.UpdateDeployment)
	deploymentRouter.Delete("/:id", c.DeleteDeployment)
	deploymentRouter.Post("/:id/deploy", c.TriggerDeploy)
	deploymentRouter.Get("/:id/history", c.GetDeployHistory)

	// 证书管理
	certRouter := ssl.Group("/certificates")
	certRouter.Get("/", c.ListCertificates)
	certRouter.Get("/:id", c.GetCertificate)
	certRouter.Get("/:id/export-pkcs12", c.ExportCertificatePkcs12)

	// 自动续期
	ssl.Post("/renewal/check", c.RunRenewalCheck)
}

// ===== DNS 凭证管理 =====

type CreateDnsCredentialRequest struct {
	Name        string            `json:"name" validate:"required"`
	Provider    model.DnsProvider `json:"provider" validate:"required"`
	ApiToken    string            `json:"api_token" validate:"required"`
	ExtraConfig string            `json:"extra_config"`
	Description string            `json:"description"`
}

func (c *SslController) CreateDnsCredential(ctx *fiber.Ctx) error {
	var req CreateDnsCredentialRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx()
	}
	if _, err := utils.Validate(req); err != nil {
		return c.err.New("参数验证失败", err).ValidWithCtx()
	}

	extraConfig, err := c.parseExtraConfig(req.ExtraConfig)
	if err != nil {
		return err
	}
	encryptedToken, err := c.app.CryptoService.Encrypt(req.ApiToken)
	if err != nil {
		return err
	}

	credential := &model.DnsCredential{
		Name:        req.Name,
		Provider:    req.Provider,
		ApiToken:    encryptedToken,
		ExtraConfig: extraConfig,
		Status:      1,
		Description: req.Description,
	}
	err = c.app.DnsCredentialDao.Create(ctx.UserContext(), credential)
	return result.Once(ctx, credential, err)
}

func (c *SslController) ListDnsCredentials(ctx *fiber.Ctx) error {
	credentials, total, err := c.findPage(ctx, func(page *mvc.Page) (interface{}, int64, error) {
		return c.app.DnsCredentialDao.FindPageByMap(ctx.UserContext(), page, nil)
	})
	if err != nil {
		return err
	}
	return result.OK(ctx, fiber.Map{"total": total, "content": credentials})
}

func (c *SslController) GetDnsCredential(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	credential, err := c.app.DnsCredentialDao.FindById(ctx.UserContext(), id)
	return result.Once(ctx, credential, err)
}

type UpdateDnsCredentialRequest struct {
	Name        string `json:"name"`
	ApiToken    string `json:"api_token"`
	ExtraConfig string `json:"extra_config"`
	Status      *int   `json:"status"`
	Description string `json:"description"`
}

func (c *SslController) UpdateDnsCredential(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	var req UpdateDnsCredentialRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx()
	}

	credential, err := c.app.DnsCredentialDao.FindById(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	if req.Name != "" {
		credential.Name = req.Name
	}
	if req.ApiToken != "" {
		encrypted, encErr := c.app.CryptoService.Encrypt(req.ApiToken)
		if encErr != nil {
			return encErr
		}
		credential.ApiToken = encrypted
	}
	if req.ExtraConfig != "" {
		extraConfig, parseErr := c.parseExtraConfig(req.ExtraConfig)
		if parseErr != nil {
			return parseErr
		}
		credential.ExtraConfig = extraConfig
	}
	if req.Status != nil {
		credential.Status = *req.Status
	}
	if req.Description != "" {
		credential.Description = req.Description
	}

	_, err = c.app.DnsCredentialDao.UpdateById(ctx.UserContext(), id, credential)
	return result.Once(ctx, credential, err)
}

func (c *SslController) DeleteDnsCredential(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	err = c.app.DnsCredentialDao.DeleteById(ctx.UserContext(), id)
	return result.Once(ctx, fiber.Map{"id": id}, err)
}

// ===== 目标设备管理 =====

type CreateTargetSystemRequest struct {
	Name          string               `json:"name" validate:"required"`
	Vendor        model.FirewallVendor `json:"vendor" validate:"required"`
	Host          string               `json:"host" validate:"required"`
	Port          int                  `json:"port"`
	Username      string               `json:"username"`
	Password      string               `json:"password"`
	ApiToken      string               `json:"api_token"`
	SkipTlsVerify *int                 `json:"skip_tls_verify"`
	ExtraConfig   string               `json:"extra_config"`
	Description   string               `json:"description"`
}

func (c *SslController) CreateTargetSystem(ctx *fiber.Ctx) error {
	var req CreateTargetSystemRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx()
	}
	if _, err := utils.Validate(req); err != nil {
		return c.err.New("参数验证失败", err).ValidWithCtx()
	}

	extraConfig, err := c.parseExtraConfig(req.ExtraConfig)
	if err != nil {
		return err
	}
	encryptedPassword, err := c.app.CryptoService.Encrypt(req.Password)
	if err != nil {
		return err
	}
	encryptedToken, err := c.app.CryptoService.Encrypt(req.ApiToken)
	if err != nil {
		return err
	}

	target := &model.TargetSystem{
		Name:          req.Name,
		Vendor:        req.Vendor,
		Host:          req.Host,
		Port:          req.Port,
		Username:      req.Username,
		Password:      encryptedPassword,
		ApiToken:      encryptedToken,
		SkipTlsVerify: 1,
		ExtraConfig:   extraConfig,
		Status:        1,
		Description:   req.Description,
	}
	if target.Port == 0 {
		target.Port = 443
	}
	if req.SkipTlsVerify != nil {
		target.SkipTlsVerify = *req.SkipTlsVerify
	}

	err = c.app.TargetSystemDao.Create(ctx.UserContext(), target)
	return result.Once(ctx, target, err)
}

func (c *SslController) ListTargetSystems(ctx *fiber.Ctx) error {
	targets, total, err := c.findPage(ctx, func(page *mvc.Page) (interface{}, int64, error) {
		return c.app.TargetSystemDao.FindPageByMap(ctx.UserContext(), page, nil)
	})
	if err != nil {
		return err
	}
	return result.OK(ctx, fiber.Map{"total": total, "content": targets})
}

func (c *SslController) GetTargetSystem(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	target, err := c.app.TargetSystemDao.FindById(ctx.UserContext(), id)
	return result.Once(ctx, target, err)
}

type UpdateTargetSystemRequest struct {
	Name          string `json:"name"`
	Host          string `json:"host"`
	Port          *int   `json:"port"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	ApiToken      string `json:"api_token"`
	SkipTlsVerify *int   `json:"skip_tls_verify"`
	ExtraConfig   string `json:"extra_config"`
	Status        *int   `json:"status"`
	Description   string `json:"description"`
}

func (c *SslController) UpdateTargetSystem(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	var req UpdateTargetSystemRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx()
	}

	target, err := c.app.TargetSystemDao.FindById(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	if req.Name != "" {
		target.Name = req.Name
	}
	if req.Host != "" {
		target.Host = req.Host
	}
	if req.Port != nil {
		target.Port = *req.Port
	}
	if req.Username != "" {
		target.Username = req.Username
	}
	if req.Password != "" {
		encrypted, encErr := c.app.CryptoService.Encrypt(req.Password)
		if encErr != nil {
			return encErr
		}
		target.Password = encrypted
	}
	if req.ApiToken != "" {
		encrypted, encErr := c.app.CryptoService.Encrypt(req.ApiToken)
		if encErr != nil {
			return encErr
		}
		target.ApiToken = encrypted
	}
	if req.SkipTlsVerify != nil {
		target.SkipTlsVerify = *req.SkipTlsVerify
	}
	if req.ExtraConfig != "" {
		extraConfig, parseErr := c.parseExtraConfig(req.ExtraConfig)
		if parseErr != nil {
			return parseErr
		}
		target.ExtraConfig = extraConfig
	}
	if req.Status != nil {
		target.Status = *req.Status
	}
	if req.Description != "" {
		target.Description = req.Description
	}

	_, err = c.app.TargetSystemDao.UpdateById(ctx.UserContext(), id, target)
	return result.Once(ctx, target, err)
}

func (c *SslController) DeleteTargetSystem(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	err = c.app.TargetSystemDao.DeleteById(ctx.UserContext(), id)
	return result.Once(ctx, fiber.Map{"id": id}, err)
}

func (c *SslController) TestTargetConnection(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	if err := c.app.TestTargetConnection(ctx.UserContext(), id); err != nil {
		return err
	}
	return result.OK(ctx, fiber.Map{"connected": true})
}

// ===== 部署管理 =====

type CreateDeploymentRequest struct {
	Name               string   `json:"name" validate:"required"`
	Domains            []string `json:"domains" validate:"required,min=1,dive,required"`
	DnsCredentialID    int64    `json:"dns_credential_id" validate:"required"`
	TargetSystemID     int64    `json:"target_system_id" validate:"required"`
	AutoRenewalEnabled *int     `json:"auto_renewal_enabled"`
	RenewalLeadDays    int      `json:"renewal_lead_days"`
	Description        string   `json:"description"`
}

func (c *SslController) CreateDeployment(ctx *fiber.Ctx) error {
	var req CreateDeploymentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx()
	}
	if _, err := utils.Validate(req); err != nil {
		return c.err.New("参数验证失败", err).ValidWithCtx()
	}

	// 引用完整性校验
	if _, err := c.app.DnsCredentialDao.FindById(ctx.UserContext(), req.DnsCredentialID); err != nil {
		return c.err.New("DNS凭证不存在", err).ValidWithCtx()
	}
	if _, err := c.app.TargetSystemDao.FindById(ctx.UserContext(), req.TargetSystemID); err != nil {
		return c.err.New("目标设备不存在", err).ValidWithCtx()
	}

	deployment := &model.Deployment{
		Name:               req.Name,
		Domains:            common.StringList(req.Domains),
		DnsCredentialID:    req.DnsCredentialID,
		TargetSystemID:     req.TargetSystemID,
		Status:             model.DeployStatusActive,
		AutoRenewalEnabled: 1,
		RenewalLeadDays:    req.RenewalLeadDays,
		Description:        req.Description,
	}
	if req.AutoRenewalEnabled != nil {
		deployment.AutoRenewalEnabled = *req.AutoRenewalEnabled
	}
	if deployment.RenewalLeadDays <= 0 {
		deployment.RenewalLeadDays = 30
	}

	err := c.app.DeploymentDao.Create(ctx.UserContext(), deployment)
	return result.Once(ctx, deployment, err)
}

func (c *SslController) ListDeployments(ctx *fiber.Ctx) error {
	deployments, total, err := c.findPage(ctx, func(page *mvc.Page) (interface{}, int64, error) {
		return c.app.DeploymentDao.FindPageByMap(ctx.UserContext(), page, nil)
	})
	if err != nil {
		return err
	}
	return result.OK(ctx, fiber.Map{"total": total, "content": deployments})
}

func (c *SslController) GetDeployment(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	deployment, err := c.app.DeploymentDao.FindById(ctx.UserContext(), id)
	return result.Once(ctx, deployment, err)
}

type UpdateDeploymentRequest struct {
	Name               string   `json:"name"`
	Domains            []string `json:"domains"`
	DnsCredentialID    *int64   `json:"dns_credential_id"`
	TargetSystemID     *int64   `json:"target_system_id"`
	AutoRenewalEnabled *int     `json:"auto_renewal_enabled"`
	RenewalLeadDays    *int     `json:"renewal_lead_days"`
	Description        string   `json:"description"`
}

func (c *SslController) UpdateDeployment(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	var req UpdateDeploymentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx()
	}

	deployment, err := c.app.DeploymentDao.FindById(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	if req.Name != "" {
		deployment.Name = req.Name
	}
	if len(req.Domains) > 0 {
		deployment.Domains = common.StringList(req.Domains)
	}
	if req.DnsCredentialID != nil {
		if _, findErr := c.app.DnsCredentialDao.FindById(ctx.UserContext(), *req.DnsCredentialID); findErr != nil {
			return c.err.New("DNS凭证不存在", findErr).ValidWithCtx()
		}
		deployment.DnsCredentialID = *req.DnsCredentialID
	}
	if req.TargetSystemID != nil {
		if _, findErr := c.app.TargetSystemDao.FindById(ctx.UserContext(), *req.TargetSystemID); findErr != nil {
			return c.err.New("目标设备不存在", findErr).ValidWithCtx()
		}
		deployment.TargetSystemID = *req.TargetSystemID
	}
	if req.AutoRenewalEnabled != nil {
		deployment.AutoRenewalEnabled = *req.AutoRenewalEnabled
	}
	if req.RenewalLeadDays != nil {
		deployment.RenewalLeadDays = *req.RenewalLeadDays
	}
	if req.Description != "" {
		deployment.Description = req.Description
	}

	_, err = c.app.DeploymentDao.UpdateById(ctx.UserContext(), id, deployment)
	return result.Once(ctx, deployment, err)
}

func (c *SslController) DeleteDeployment(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	err = c.app.DeploymentDao.DeleteById(ctx.UserContext(), id)
	return result.Once(ctx, fiber.Map{"id": id}, err)
}

// TriggerDeploy 手动触发一次续期部署，同步执行
func (c *SslController) TriggerDeploy(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	if _, err := c.app.RenewAndDeploy(ctx.UserContext(), id, model.OriginAPI); err != nil {
		return err
	}
	deployment, err := c.app.DeploymentDao.FindById(ctx.UserContext(), id)
	return result.Once(ctx, deployment, err)
}

func (c *SslController) GetDeployHistory(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	page := c.pageFromQuery(ctx)
	histories, total, err := c.app.DeployHistoryDao.FindByDeployment(ctx.UserContext(), id, page)
	if err != nil {
		return err
	}
	return result.OK(ctx, fiber.Map{"total": total, "content": histories})
}

// ===== 证书管理 =====

func (c *SslController) ListCertificates(ctx *fiber.Ctx) error {
	certs, total, err := c.findPage(ctx, func(page *mvc.Page) (interface{}, int64, error) {
		return c.app.CertificateDao.FindPageByMap(ctx.UserContext(), page, nil)
	})
	if err != nil {
		return err
	}
	return result.OK(ctx, fiber.Map{"total": total, "content": certs})
}

func (c *SslController) GetCertificate(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	cert, err := c.app.CertificateDao.FindById(ctx.UserContext(), id)
	return result.Once(ctx, cert, err)
}

// ExportCertificatePkcs12 导出 PKCS#12 文件，口令从查询参数读取
func (c *SslController) ExportCertificatePkcs12(ctx *fiber.Ctx) error {
	id, err := c.paramID(ctx)
	if err != nil {
		return err
	}
	password := ctx.Query("password")
	if password == "" {
		return c.err.New("导出口令不能为空", nil).ValidWithCtx()
	}

	cert, err := c.app.CertificateDao.FindById(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	if cert.Status != model.CertStatusIssued {
		return c.err.New("证书尚未签发", nil).ValidWithCtx()
	}

	material, err := c.app.CertificateSvc.Material(cert)
	if err != nil {
		return err
	}
	data, err := c.app.Pkcs12Service.Package([]byte(material.ChainPEM), []byte(material.PrivateKeyPEM), password)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "application/x-pkcs12")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="certificate.pfx"`)
	return ctx.Send(data)
}

// ===== 自动续期 =====

// RunRenewalCheck 立即执行一轮到期扫描，返回每条部署的执行结果
func (c *SslController) RunRenewalCheck(ctx *fiber.Ctx) error {
	results, err := c.app.RenewalScheduler.RunManualCheck(ctx.UserContext())
	if err != nil {
		return err
	}
	return result.OK(ctx, fiber.Map{"processed": len(results), "results": results})
}

// ===== 辅助方法 =====

func (c *SslController) paramID(ctx *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return 0, c.err.New("无效的 ID", err).ValidWithCtx()
	}
	return id, nil
}

func (c *SslController) pageFromQuery(ctx *fiber.Ctx) *mvc.Page {
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.Query("page_size", "20"))
	return &mvc.Page{PageNum: page, Size: pageSize}
}

func (c *SslController) findPage(ctx *fiber.Ctx, finder func(page *mvc.Page) (interface{}, int64, error)) (interface{}, int64, error) {
	return finder(c.pageFromQuery(ctx))
}

func (c *SslController) parseExtraConfig(raw string) (*common.JSON, error) {
	if raw == "" {
		return nil, nil
	}
	var jsonData common.JSON
	if err := utils.ParseJSON(raw, &jsonData); err != nil {
		return nil, c.err.New("解析 extra_config 失败", err).ValidWithCtx()
	}
	return &jsonData, nil
}
