package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"

	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/providers/dns/cloudflare"
	"github.com/tidwall/gjson"
)

const cloudflareBaseURL = "https://api.cloudflare.com/client/v4"

// CloudflareProvider Cloudflare 质询提供者
// TXT 记录的发布与清理委托给 lego 的 cloudflare provider，由其按 FQDN 定位区域
// 本层负责构造配置和签发前的凭据校验，需要带 Zone.DNS 编辑权限的 API Token
type CloudflareProvider struct {
	inner   challenge.Provider
	token   string
	zoneID  string
	baseURL string
	client  *http.Client
	log     *logger.Log
	err     *errorc.ErrorBuilder
}

var _ DnsChallengeProvider = (*CloudflareProvider)(nil)

// NewCloudflareProvider 创建 Cloudflare 质询提供者，构造时校验必填参数
func NewCloudflareProvider(token, zoneID string, log *logger.Log) (*CloudflareProvider, error) {
	if token == "" {
		return nil, errorc.New("Cloudflare API Token不能为空", nil).WithCode(errorc.ErrorCodeConfig)
	}
	if zoneID == "" {
		return nil, errorc.New("Cloudflare zone_id不能为空", nil).WithCode(errorc.ErrorCodeConfig)
	}

	config := cloudflare.NewDefaultConfig()
	config.AuthToken = token
	config.TTL = 120
	config.PropagationTimeout = 10 * time.Minute
	config.PollingInterval = 10 * time.Second
	inner, err := cloudflare.NewDNSProviderConfig(config)
	if err != nil {
		return nil, errorc.New("创建Cloudflare DNS提供者失败", err).WithCode(errorc.ErrorCodeConfig)
	}

	return &CloudflareProvider{
		inner:   inner,
		token:   token,
		zoneID:  zoneID,
		baseURL: cloudflareBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.WithEntryName("CloudflareProvider"),
		err:     errorc.NewErrorBuilder("CloudflareProvider"),
	}, nil
}

// Validate 校验令牌对区域是否有效
func (p *CloudflareProvider) Validate(ctx context.Context) error {
	body, err := p.doRequest(ctx, fmt.Sprintf("/zones/%s", p.zoneID))
	if err != nil {
		return err
	}
	if !gjson.GetBytes(body, "success").Bool() {
		return p.err.New("Cloudflare区域校验失败: "+gjson.GetBytes(body, "errors.0.message").String(), nil).Challenge()
	}
	return nil
}

// Present 创建质询 TXT 记录
func (p *CloudflareProvider) Present(domain, token, keyAuth string) error {
	return p.inner.Present(domain, token, keyAuth)
}

// CleanUp 删除质询 TXT 记录
func (p *CloudflareProvider) CleanUp(domain, token, keyAuth string) error {
	return p.inner.CleanUp(domain, token, keyAuth)
}

func (p *CloudflareProvider) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, p.err.New("构造Cloudflare请求失败", err).Challenge()
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.err.New("请求Cloudflare失败", err).Network()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.err.New("读取Cloudflare响应失败", err).Network()
	}
	return body, nil
}
