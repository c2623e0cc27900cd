package service

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/system/ssl/internal/model"

	"github.com/tidwall/gjson"
)

// sonicWallImportOKMarkers 同名证书已存在时 CLI 返回的提示，出现即视为导入成功
var sonicWallImportOKMarkers = []string{
	"loaded before",
	"already exists",
	"duplicate local certificate name",
}

// SonicWallClient 通过 SonicOS API 的 CLI 直通通道部署证书
// 证书文件先放到 FTP，由设备自行拉取导入
type SonicWallClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	log      *logger.Log
	err      *errorc.ErrorBuilder

	authed bool
	// importedNew 本次会话是否新导入了证书，决定失败回滚时能否删除
	importedNew  bool
	importedName string
}

// NewSonicWallClient 创建 SonicWall 客户端
func NewSonicWallClient(target *model.TargetSystem, password string, log *logger.Log) (*SonicWallClient, error) {
	if target.Username == "" || password == "" {
		return nil, errorc.New("SonicWall管理账号不能为空", nil).WithCode(errorc.ErrorCodeConfig)
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: target.SkipTlsVerify == 1},
	}
	return &SonicWallClient{
		baseURL:  fmt.Sprintf("https://%s:%d/api/sonicos", target.Host, target.Port),
		username: target.Username,
		password: password,
		client:   &http.Client{Transport: transport, Timeout: 120 * time.Second},
		log:      log.WithEntryName("SonicWallClient").WithField("Host", target.Host),
		err:      errorc.NewErrorBuilder("SonicWallClient"),
	}, nil
}

// TestConnection 登录并读取版本信息
func (c *SonicWallClient) TestConnection(ctx context.Context) error {
	if err := c.ensureAuth(ctx); err != nil {
		return err
	}
	_, err := c.runCli(ctx, "show version")
	return err
}

// ImportCertificate 让设备从 FTP 拉取 PKCS#12 文件导入
func (c *SonicWallClient) ImportCertificate(ctx context.Context, name string, material *DeployMaterial) error {
	if material.Pkcs12URL == "" {
		return c.err.New("缺少PKCS#12下载地址", nil).Config()
	}
	if err := c.ensureAuth(ctx); err != nil {
		return err
	}

	script := strings.Join([]string{
		"certificates",
		fmt.Sprintf("import cert-key-pair %s password %s ftp %s", name, material.Pkcs12Password, material.Pkcs12URL),
		"exit",
	}, "\n")

	output, err := c.runCli(ctx, script)
	if err != nil {
		lower := strings.ToLower(err.Error() + " " + output)
		for _, marker := range sonicWallImportOKMarkers {
			if strings.Contains(lower, marker) {
				c.log.WithField("Cert", name).Info("同名证书已存在，跳过导入")
				c.importedName = name
				return nil
			}
		}
		return c.err.New("证书导入失败", err).DeployImport()
	}

	c.importedNew = true
	c.importedName = name
	c.log.WithField("Cert", name).Info("证书导入完成")
	return nil
}

// ConfigureService 把 SSL-VPN 服务切到指定证书，失败时回滚本次导入的证书
func (c *SonicWallClient) ConfigureService(ctx context.Context, name string) error {
	if err := c.ensureAuth(ctx); err != nil {
		return err
	}

	script := strings.Join([]string{
		"ssl-vpn server",
		fmt.Sprintf("certificate name %s", name),
		"exit",
	}, "\n")
	if _, err := c.runCli(ctx, script); err != nil {
		c.rollbackImport(ctx)
		return c.err.New("切换SSL-VPN证书失败", err).DeployConfig()
	}
	c.log.WithField("Cert", name).Info("SSL-VPN服务证书已切换")
	return nil
}

// Commit 提交挂起配置，失败时回滚本次导入的证书
func (c *SonicWallClient) Commit(ctx context.Context) error {
	if err := c.ensureAuth(ctx); err != nil {
		return err
	}
	if _, err := c.runCli(ctx, "commit"); err != nil {
		c.rollbackImport(ctx)
		return c.err.New("提交配置失败", err).DeployConfig()
	}
	return nil
}

// VerifyActive 回读 SSL-VPN 服务配置确认证书生效
func (c *SonicWallClient) VerifyActive(ctx context.Context, name string) (bool, error) {
	if err := c.ensureAuth(ctx); err != nil {
		return false, err
	}
	output, err := c.runCli(ctx, "show ssl-vpn server")
	if err != nil {
		return false, c.err.New("读取SSL-VPN配置失败", err).DeployVerify()
	}
	return strings.Contains(output, name), nil
}

// CleanupOldCertificates 删除历史部署留下的旧证书
// 只比对一次设备上的证书清单，再逐个删除命中的候选名
func (c *SonicWallClient) CleanupOldCertificates(ctx context.Context, currentName string) error {
	if err := c.ensureAuth(ctx); err != nil {
		return err
	}
	output, err := c.runCli(ctx, "show certificates")
	if err != nil {
		return c.err.New("读取证书清单失败", err).Third()
	}

	for _, name := range oldCertNameCandidates(certNamePrefixOf(currentName), time.Now(), currentName) {
		if !strings.Contains(output, name) {
			continue
		}
		if err := c.deleteCertificate(ctx, name); err != nil {
			c.log.WithField("Cert", name).Warn("删除旧证书失败")
			continue
		}
		c.log.WithField("Cert", name).Info("旧证书已删除")
	}
	return nil
}

// Close 注销会话
func (c *SonicWallClient) Close(ctx context.Context) error {
	if !c.authed {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/auth", nil)
	if err != nil {
		return nil
	}
	c.setAuthHeader(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	resp.Body.Close()
	c.authed = false
	return nil
}

// rollbackImport 配置失败后删掉本次新导入的证书，原有生效证书不动
func (c *SonicWallClient) rollbackImport(ctx context.Context) {
	if !c.importedNew || c.importedName == "" {
		return
	}
	if err := c.deleteCertificate(ctx, c.importedName); err != nil {
		c.log.WithErr(err).WithField("Cert", c.importedName).Warn("回滚删除证书失败")
		return
	}
	c.log.WithField("Cert", c.importedName).Info("已回滚本次导入的证书")
}

func (c *SonicWallClient) deleteCertificate(ctx context.Context, name string) error {
	script := strings.Join([]string{
		"certificates",
		fmt.Sprintf("no certificate %q", name),
		"commit",
		"end",
		"exit",
	}, "\n")
	_, err := c.runCli(ctx, script)
	return err
}

// ensureAuth 登录并复位 CLI 状态，会话内只执行一次
func (c *SonicWallClient) ensureAuth(ctx context.Context) error {
	if c.authed {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth",
		strings.NewReader(`{"override": true}`))
	if err != nil {
		return c.err.New("构造SonicWall登录请求失败", err).Third()
	}
	c.setAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return c.err.New("请求SonicWall失败", err).Network()
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.err.New(fmt.Sprintf("SonicWall登录失败: HTTP %d %s",
			resp.StatusCode, gjson.GetBytes(body, "status.info.0.message").String()), nil).NoAuth()
	}
	c.authed = true

	// 登录后可能残留在配置模式里，连退三层回到顶层
	if _, err := c.runCli(ctx, "exit\nexit\nexit"); err != nil {
		c.log.WithErr(err).Debug("复位CLI状态失败")
	}
	return nil
}

// runCli 通过 CLI 直通通道执行命令，返回设备输出
func (c *SonicWallClient) runCli(ctx context.Context, script string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/direct/cli",
		strings.NewReader(script))
	if err != nil {
		return "", c.err.New("构造CLI请求失败", err).Third()
	}
	c.setAuthHeader(req)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.err.New("请求SonicWall失败", err).Network()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.err.New("读取SonicWall响应失败", err).Network()
	}
	output := string(body)

	if status := gjson.GetBytes(body, "status"); status.Exists() && !status.Get("success").Bool() {
		message := status.Get("info.0.message").String()
		if message == "" {
			message = output
		}
		return output, c.err.New("CLI命令执行失败: "+message, nil).Third()
	}
	if resp.StatusCode != http.StatusOK {
		return output, c.err.New(fmt.Sprintf("CLI命令执行失败: HTTP %d", resp.StatusCode), nil).Third()
	}
	return output, nil
}

func (c *SonicWallClient) setAuthHeader(req *http.Request) {
	raw := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
	req.Header.Set("Authorization", "Basic "+raw)
}
