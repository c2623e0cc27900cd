package service

import (
	"context"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/system/ssl/internal/model"

	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"
)

// DnsChallengeProvider DNS-01 质询提供者
// TXT 记录的增删遵循 lego 的 challenge.Provider 约定，区域定位、记录拆分
// 等细节由各服务商的 lego provider 处理；Validate 在签发前校验凭据快速失败
type DnsChallengeProvider interface {
	challenge.Provider
	// Validate 校验凭据和区域配置是否可用
	Validate(ctx context.Context) error
}

// dnsProviderFactory 按服务商创建质询提供者，token 为已解密的 API 令牌
type dnsProviderFactory func(credential *model.DnsCredential, token string, log *logger.Log) (DnsChallengeProvider, error)

var dnsProviderFactories = map[model.DnsProvider]dnsProviderFactory{
	model.DnsProviderCloudflare: func(credential *model.DnsCredential, token string, log *logger.Log) (DnsChallengeProvider, error) {
		return NewCloudflareProvider(token, credential.ZoneID(), log)
	},
	model.DnsProviderDigitalOcean: func(credential *model.DnsCredential, token string, log *logger.Log) (DnsChallengeProvider, error) {
		return NewDigitalOceanProvider(token, log)
	},
}

// NewDnsChallengeProvider 根据凭据创建对应服务商的质询提供者
func NewDnsChallengeProvider(credential *model.DnsCredential, token string, log *logger.Log) (DnsChallengeProvider, error) {
	factory, ok := dnsProviderFactories[credential.Provider]
	if !ok {
		return nil, errorc.New("不支持的DNS服务商: "+string(credential.Provider), nil).WithCode(errorc.ErrorCodeConfig)
	}
	return factory(credential, token, log)
}

// legoChallengeAdapter 在质询提供者外补充日志，并吞掉清理阶段的错误
type legoChallengeAdapter struct {
	provider DnsChallengeProvider
	log      *logger.Log
}

func (a *legoChallengeAdapter) Present(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)
	a.log.WithField("Fqdn", info.EffectiveFQDN).Info("发布DNS质询记录")
	return a.provider.Present(domain, token, keyAuth)
}

func (a *legoChallengeAdapter) CleanUp(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)
	if err := a.provider.CleanUp(domain, token, keyAuth); err != nil {
		// 清理失败不影响签发结果，记录后吞掉
		a.log.WithErr(err).WithField("Fqdn", info.EffectiveFQDN).Warn("清理DNS质询记录失败")
	}
	return nil
}
