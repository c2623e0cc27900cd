package service

import (
	"context"
	"io"
	"net/http"
	"time"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"

	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/providers/dns/digitalocean"
	"github.com/tidwall/gjson"
)

const digitalOceanBaseURL = "https://api.digitalocean.com"

// DigitalOceanProvider DigitalOcean 质询提供者
// TXT 记录的发布与清理委托给 lego 的 digitalocean provider，由其按 FQDN
// 定位托管域，本层负责构造配置和签发前的令牌校验
type DigitalOceanProvider struct {
	inner   challenge.Provider
	token   string
	baseURL string
	client  *http.Client
	log     *logger.Log
	err     *errorc.ErrorBuilder
}

var _ DnsChallengeProvider = (*DigitalOceanProvider)(nil)

// NewDigitalOceanProvider 创建 DigitalOcean 质询提供者
func NewDigitalOceanProvider(token string, log *logger.Log) (*DigitalOceanProvider, error) {
	if token == "" {
		return nil, errorc.New("DigitalOcean API Token不能为空", nil).WithCode(errorc.ErrorCodeConfig)
	}

	config := digitalocean.NewDefaultConfig()
	config.AuthToken = token
	config.TTL = 30
	inner, err := digitalocean.NewDNSProviderConfig(config)
	if err != nil {
		return nil, errorc.New("创建DigitalOcean DNS提供者失败", err).WithCode(errorc.ErrorCodeConfig)
	}

	return &DigitalOceanProvider{
		inner:   inner,
		token:   token,
		baseURL: digitalOceanBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.WithEntryName("DigitalOceanProvider"),
		err:     errorc.NewErrorBuilder("DigitalOceanProvider"),
	}, nil
}

// Validate 校验令牌有效性
func (p *DigitalOceanProvider) Validate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v2/account", nil)
	if err != nil {
		return p.err.New("构造DigitalOcean请求失败", err).Challenge()
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return p.err.New("请求DigitalOcean失败", err).Network()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.err.New("读取DigitalOcean响应失败", err).Network()
	}
	if resp.StatusCode != http.StatusOK {
		return p.err.New("DigitalOcean令牌校验失败: "+gjson.GetBytes(body, "message").String(), nil).Challenge()
	}
	return nil
}

// Present 创建质询 TXT 记录
func (p *DigitalOceanProvider) Present(domain, token, keyAuth string) error {
	return p.inner.Present(domain, token, keyAuth)
}

// CleanUp 删除质询 TXT 记录
func (p *DigitalOceanProvider) CleanUp(domain, token, keyAuth string) error {
	return p.inner.CleanUp(domain, token, keyAuth)
}
