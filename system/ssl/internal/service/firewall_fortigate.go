package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/system/ssl/internal/model"

	"github.com/tidwall/gjson"
)

// fortiErrCertExists FortiGate 同名证书已存在时的业务错误码
const fortiErrCertExists = -23

// FortiGateClient 通过 FortiOS REST API 部署证书
// 使用 Bearer Token 认证，配置修改即时生效，无独立提交步骤
type FortiGateClient struct {
	baseURL string
	token   string
	client  *http.Client
	log     *logger.Log
	err     *errorc.ErrorBuilder
}

// NewFortiGateClient 创建 FortiGate 客户端
func NewFortiGateClient(target *model.TargetSystem, apiToken string, log *logger.Log) (*FortiGateClient, error) {
	if apiToken == "" {
		return nil, errorc.New("FortiGate API Token不能为空", nil).WithCode(errorc.ErrorCodeConfig)
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: target.SkipTlsVerify == 1},
	}
	return &FortiGateClient{
		baseURL: fmt.Sprintf("https://%s:%d/api/v2", target.Host, target.Port),
		token:   apiToken,
		client:  &http.Client{Transport: transport, Timeout: 60 * time.Second},
		log:     log.WithEntryName("FortiGateClient").WithField("Host", target.Host),
		err:     errorc.NewErrorBuilder("FortiGateClient"),
	}, nil
}

// TestConnection 读系统状态验证可达性和令牌
func (c *FortiGateClient) TestConnection(ctx context.Context) error {
	body, status, err := c.doJSON(ctx, http.MethodGet, "/monitor/system/status", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return c.err.New(fmt.Sprintf("FortiGate连接测试失败: HTTP %d %s",
			status, gjson.GetBytes(body, "status").String()), nil).Network()
	}
	return nil
}

// ImportCertificate 导入证书和私钥，同名证书已存在视为成功
func (c *FortiGateClient) ImportCertificate(ctx context.Context, name string, material *DeployMaterial) error {
	payload := map[string]interface{}{
		"type":             "regular",
		"certname":         name,
		"file_content":     base64.StdEncoding.EncodeToString(material.ChainPEM),
		"key_file_content": base64.StdEncoding.EncodeToString(material.KeyPEM),
		"scope":            "global",
	}
	body, status, err := c.doJSON(ctx, http.MethodPost, "/monitor/vpn-certificate/local/import", payload)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		c.log.WithField("Cert", name).Info("证书导入完成")
		return nil
	}
	// 同名证书已存在时返回 500 加业务错误码
	if status == http.StatusInternalServerError && gjson.GetBytes(body, "error").Int() == fortiErrCertExists {
		c.log.WithField("Cert", name).Info("同名证书已存在，跳过导入")
		return nil
	}
	return c.err.New(fmt.Sprintf("证书导入失败: HTTP %d %s", status, string(body)), nil).DeployImport()
}

// ConfigureService 把 SSL-VPN 服务证书切到指定证书
func (c *FortiGateClient) ConfigureService(ctx context.Context, name string) error {
	payload := map[string]interface{}{
		"servercert": name,
	}
	body, status, err := c.doJSON(ctx, http.MethodPut, "/cmdb/vpn.ssl/settings", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return c.err.New(fmt.Sprintf("切换SSL-VPN证书失败: HTTP %d %s", status, string(body)), nil).DeployConfig()
	}
	c.log.WithField("Cert", name).Info("SSL-VPN服务证书已切换")
	return nil
}

// Commit FortiGate 配置即时生效，无需提交
func (c *FortiGateClient) Commit(ctx context.Context) error {
	return nil
}

// VerifyActive 回读 SSL-VPN 配置确认证书生效
func (c *FortiGateClient) VerifyActive(ctx context.Context, name string) (bool, error) {
	body, status, err := c.doJSON(ctx, http.MethodGet, "/cmdb/vpn.ssl/settings", nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, c.err.New(fmt.Sprintf("读取SSL-VPN配置失败: HTTP %d", status), nil).DeployVerify()
	}
	active := gjson.GetBytes(body, "results.servercert").String()
	return active == name, nil
}

// CleanupOldCertificates 删除历史部署留下的旧证书
func (c *FortiGateClient) CleanupOldCertificates(ctx context.Context, currentName string) error {
	body, status, err := c.doJSON(ctx, http.MethodGet, "/cmdb/vpn.certificate/local", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return c.err.New(fmt.Sprintf("读取证书列表失败: HTTP %d", status), nil).Third()
	}

	candidates := make(map[string]struct{})
	for _, name := range oldCertNameCandidates(certNamePrefixOf(currentName), time.Now(), currentName) {
		candidates[name] = struct{}{}
	}

	for _, entry := range gjson.GetBytes(body, "results.#.name").Array() {
		name := entry.String()
		if _, ok := candidates[name]; !ok {
			continue
		}
		_, deleteStatus, deleteErr := c.doJSON(ctx, http.MethodDelete, "/cmdb/vpn.certificate/local/"+name, nil)
		if deleteErr != nil || deleteStatus != http.StatusOK {
			// 旧证书可能仍被引用，删除失败不阻断流程
			c.log.WithField("Cert", name).Warn("删除旧证书失败")
			continue
		}
		c.log.WithField("Cert", name).Info("旧证书已删除")
	}
	return nil
}

// Close FortiGate 无会话状态
func (c *FortiGateClient) Close(ctx context.Context) error {
	return nil
}

func (c *FortiGateClient) doJSON(ctx context.Context, method, path string, payload interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, c.err.New("序列化请求失败", err).Third()
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, c.err.New("构造FortiGate请求失败", err).Third()
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, c.err.New("请求FortiGate失败", err).Network()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, c.err.New("读取FortiGate响应失败", err).Network()
	}
	return body, resp.StatusCode, nil
}
