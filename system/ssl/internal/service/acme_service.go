package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"certsync/pkg/core/config"
	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/pkg/progress"

	"github.com/go-acme/lego/v4/acme"
	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge/dns01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"
)

// AcmeService 通过 ACME DNS-01 质询签发证书
type AcmeService struct {
	cfg config.AcmeConfig
	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewAcmeService 创建 ACME 签发服务
func NewAcmeService(cfg config.AcmeConfig, log *logger.Log) *AcmeService {
	return &AcmeService{
		cfg: cfg,
		log: log.WithEntryName("AcmeService"),
		err: errorc.NewErrorBuilder("AcmeService"),
	}
}

// Issue 为域名列表签发证书，返回 PEM 编码的证书链（叶子在前）和私钥
// provider 负责质询记录的发布与清理，stream 接收签发进度
func (s *AcmeService) Issue(ctx context.Context, domains []string, provider DnsChallengeProvider, stream *progress.Recorder) (certPEM, keyPEM []byte, err error) {
	if len(domains) == 0 {
		return nil, nil, s.err.New("域名列表不能为空", nil).ValidWithCtx()
	}
	if s.cfg.Email == "" {
		return nil, nil, s.err.New("ACME账户邮箱未配置", nil).Config()
	}

	accountKey, err := loadOrCreateAccountKey(s.cfg.AccountKeyPath)
	if err != nil {
		return nil, nil, err
	}
	user := &acmeUser{email: s.cfg.Email, key: accountKey}

	legoCfg := lego.NewConfig(user)
	if s.cfg.DirectoryURL != "" {
		legoCfg.CADirURL = s.cfg.DirectoryURL
	}
	legoCfg.Certificate.KeyType = certcrypto.RSA2048
	if s.cfg.FinalizeTimeoutSeconds > 0 {
		legoCfg.Certificate.Timeout = time.Duration(s.cfg.FinalizeTimeoutSeconds) * time.Second
	}

	client, err := lego.NewClient(legoCfg)
	if err != nil {
		return nil, nil, s.err.New("创建ACME客户端失败", err).Challenge()
	}

	opts := []dns01.ChallengeOption{
		dns01.AddDNSTimeout(time.Duration(s.cfg.DNSTimeoutSeconds) * time.Second),
		dns01.PropagationWait(time.Duration(s.cfg.PropagationWaitSeconds)*time.Second, true),
	}
	if len(s.cfg.Nameservers) > 0 {
		opts = append(opts, dns01.AddRecursiveNameservers(s.cfg.Nameservers))
	}
	adapter := &legoChallengeAdapter{provider: provider, log: s.log}
	if err := client.Challenge.SetDNS01Provider(adapter, opts...); err != nil {
		return nil, nil, s.err.New("设置DNS-01质询提供者失败", err).Challenge()
	}

	stream.Infof(progress.PhaseRenewal, "注册ACME账户 %s", s.cfg.Email)
	reg, err := client.Registration.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	if err != nil {
		if !isExistingAccountError(err) {
			return nil, nil, s.err.New("注册ACME账户失败", err).Challenge()
		}
		// 账户已存在，按私钥找回
		reg, err = client.Registration.ResolveAccountByKey()
		if err != nil {
			return nil, nil, s.err.New("找回ACME账户失败", err).Challenge()
		}
	}
	user.registration = reg

	stream.Infof(progress.PhaseRenewal, "申请证书，域名: %s", strings.Join(domains, ", "))
	request := certificate.ObtainRequest{
		Domains: domains,
		Bundle:  true,
	}
	res, err := client.Certificate.Obtain(request)
	if err != nil {
		if strings.Contains(err.Error(), "time limit exceeded") {
			return nil, nil, s.err.New("等待证书签发超时", err).IssuanceTimeout()
		}
		return nil, nil, s.err.New("证书签发失败", err).Challenge()
	}

	stream.Infof(progress.PhaseRenewal, "证书签发完成: %s", res.Domain)
	return res.Certificate, res.PrivateKey, nil
}

// isExistingAccountError 判断注册失败是否因为账户已存在，只有这种情况才按私钥找回
func isExistingAccountError(err error) bool {
	var problem *acme.ProblemDetails
	if !errors.As(err, &problem) {
		return false
	}
	return problem.HTTPStatus == http.StatusConflict ||
		strings.HasSuffix(problem.Type, ":accountExists")
}
