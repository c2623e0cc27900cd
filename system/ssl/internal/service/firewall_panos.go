package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/system/ssl/internal/model"
)

const (
	panosVsysXpath       = "/config/devices/entry[@name='localhost.localdomain']/vsys/entry[@name='vsys1']"
	panosSslProfileXpath = panosVsysXpath + "/ssl-tls-service-profile/entry[@name='default']"
)

// panosResponse XML API 的通用响应结构，根节点 status 属性为准
type panosResponse struct {
	XMLName xml.Name `xml:"response"`
	Status  string   `xml:"status,attr"`
	Msg     struct {
		Inner string `xml:",innerxml"`
	} `xml:"msg"`
	Result struct {
		Inner string `xml:",innerxml"`
		Certs struct {
			Entries []struct {
				Name string `xml:"name,attr"`
			} `xml:"entry"`
		} `xml:"certificate"`
		Profile struct {
			Certificate string `xml:"entry>certificate"`
		} `xml:"ssl-tls-service-profile"`
	} `xml:"result"`
}

func (r *panosResponse) succeeded() bool {
	return r.Status == "success"
}

// PanOSClient 通过 PAN-OS XML API 部署证书
// 认证用 API Key，配置先写候选库，commit 后生效
type PanOSClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logger.Log
	err     *errorc.ErrorBuilder
}

// NewPanOSClient 创建 PAN-OS 客户端
func NewPanOSClient(target *model.TargetSystem, apiKey string, log *logger.Log) (*PanOSClient, error) {
	if apiKey == "" {
		return nil, errorc.New("PAN-OS API Key不能为空", nil).WithCode(errorc.ErrorCodeConfig)
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: target.SkipTlsVerify == 1},
	}
	return &PanOSClient{
		baseURL: fmt.Sprintf("https://%s:%d/api/", target.Host, target.Port),
		apiKey:  apiKey,
		client:  &http.Client{Transport: transport, Timeout: 120 * time.Second},
		log:     log.WithEntryName("PanOSClient").WithField("Host", target.Host),
		err:     errorc.NewErrorBuilder("PanOSClient"),
	}, nil
}

// TestConnection 读系统信息验证可达性和 API Key
func (c *PanOSClient) TestConnection(ctx context.Context) error {
	params := url.Values{}
	params.Set("type", "op")
	params.Set("cmd", "<show><system><info></info></system></show>")
	resp, err := c.doForm(ctx, params)
	if err != nil {
		return err
	}
	if !resp.succeeded() {
		return c.err.New("PAN-OS连接测试失败: "+resp.Msg.Inner, nil).Network()
	}
	return nil
}

// ImportCertificate 导入密钥对，私钥和证书链拼成单个 PEM 上传
func (c *PanOSClient) ImportCertificate(ctx context.Context, name string, material *DeployMaterial) error {
	combined := append(append([]byte{}, material.KeyPEM...), material.ChainPEM...)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name+".pem")
	if err != nil {
		return c.err.New("构造上传表单失败", err).Third()
	}
	if _, err := part.Write(combined); err != nil {
		return c.err.New("构造上传表单失败", err).Third()
	}
	writer.Close()

	params := url.Values{}
	params.Set("type", "import")
	params.Set("category", "keypair")
	params.Set("certificate-name", name)
	params.Set("format", "pem")
	// 私钥未加密时不能带 passphrase，PAN-OS 会按加密私钥解析
	if material.Pkcs12Password != "" {
		params.Set("passphrase", material.Pkcs12Password)
	}
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"?"+params.Encode(), &buf)
	if err != nil {
		return c.err.New("构造PAN-OS请求失败", err).Third()
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	if !resp.succeeded() {
		return c.err.New("证书导入失败: "+resp.Msg.Inner, nil).DeployImport()
	}
	c.log.WithField("Cert", name).Info("证书导入完成")
	return nil
}

// ConfigureService 把默认 SSL/TLS 服务配置切到指定证书
func (c *PanOSClient) ConfigureService(ctx context.Context, name string) error {
	params := url.Values{}
	params.Set("type", "config")
	params.Set("action", "set")
	params.Set("xpath", panosSslProfileXpath)
	params.Set("element", fmt.Sprintf("<certificate>%s</certificate>", name))
	resp, err := c.doForm(ctx, params)
	if err != nil {
		return err
	}
	if !resp.succeeded() {
		return c.err.New("切换服务证书失败: "+resp.Msg.Inner, nil).DeployConfig()
	}
	c.log.WithField("Cert", name).Info("SSL/TLS服务配置已切换")
	return nil
}

// Commit 提交候选配置
func (c *PanOSClient) Commit(ctx context.Context) error {
	params := url.Values{}
	params.Set("type", "commit")
	params.Set("cmd", "<commit></commit>")
	resp, err := c.doForm(ctx, params)
	if err != nil {
		return err
	}
	if !resp.succeeded() {
		return c.err.New("提交配置失败: "+resp.Msg.Inner, nil).DeployConfig()
	}
	return nil
}

// VerifyActive 回读服务配置确认证书生效
func (c *PanOSClient) VerifyActive(ctx context.Context, name string) (bool, error) {
	params := url.Values{}
	params.Set("type", "config")
	params.Set("action", "get")
	params.Set("xpath", panosSslProfileXpath)
	resp, err := c.doForm(ctx, params)
	if err != nil {
		return false, err
	}
	if !resp.succeeded() {
		return false, c.err.New("读取服务配置失败: "+resp.Msg.Inner, nil).DeployVerify()
	}
	return resp.Result.Profile.Certificate == name, nil
}

// CleanupOldCertificates 删除历史部署留下的旧证书，删过之后统一提交一次
func (c *PanOSClient) CleanupOldCertificates(ctx context.Context, currentName string) error {
	params := url.Values{}
	params.Set("type", "config")
	params.Set("action", "get")
	params.Set("xpath", panosVsysXpath+"/certificate")
	resp, err := c.doForm(ctx, params)
	if err != nil {
		return err
	}
	if !resp.succeeded() {
		return c.err.New("读取证书清单失败: "+resp.Msg.Inner, nil).Third()
	}

	deployed := make(map[string]struct{}, len(resp.Result.Certs.Entries))
	for _, entry := range resp.Result.Certs.Entries {
		deployed[entry.Name] = struct{}{}
	}

	deleted := 0
	for _, name := range oldCertNameCandidates(certNamePrefixOf(currentName), time.Now(), currentName) {
		if _, ok := deployed[name]; !ok {
			continue
		}
		deleteParams := url.Values{}
		deleteParams.Set("type", "config")
		deleteParams.Set("action", "delete")
		deleteParams.Set("xpath", fmt.Sprintf("%s/certificate/entry[@name='%s']", panosVsysXpath, name))
		deleteResp, deleteErr := c.doForm(ctx, deleteParams)
		if deleteErr != nil || !deleteResp.succeeded() {
			c.log.WithField("Cert", name).Warn("删除旧证书失败")
			continue
		}
		deleted++
		c.log.WithField("Cert", name).Info("旧证书已删除")
	}

	if deleted > 0 {
		return c.Commit(ctx)
	}
	return nil
}

// Close PAN-OS 无会话状态
func (c *PanOSClient) Close(ctx context.Context) error {
	return nil
}

func (c *PanOSClient) doForm(ctx context.Context, params url.Values) (*panosResponse, error) {
	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL,
		bytes.NewBufferString(params.Encode()))
	if err != nil {
		return nil, c.err.New("构造PAN-OS请求失败", err).Third()
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doRequest(req)
}

func (c *PanOSClient) doRequest(req *http.Request) (*panosResponse, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.err.New("请求PAN-OS失败", err).Network()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.err.New("读取PAN-OS响应失败", err).Network()
	}

	var parsed panosResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, c.err.New("解析PAN-OS响应失败", err).Third()
	}
	return &parsed, nil
}
