package service

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/pkg/core/model/common"
	"certsync/pkg/progress"
	"certsync/system/ssl/internal/dao"
	"certsync/system/ssl/internal/model"
)

// fallbackValidityDays 证书解析失败时假定的有效期天数
const fallbackValidityDays = 90

// CertificateService 证书签发与持久化
type CertificateService struct {
	certDao *dao.CertificateDao
	acme    *AcmeService
	crypto  *CryptoService
	log     *logger.Log
	err     *errorc.ErrorBuilder
}

// NewCertificateService 创建证书服务
func NewCertificateService(certDao *dao.CertificateDao, acme *AcmeService, crypto *CryptoService, log *logger.Log) *CertificateService {
	return &CertificateService{
		certDao: certDao,
		acme:    acme,
		crypto:  crypto,
		log:     log.WithEntryName("CertificateService"),
		err:     errorc.NewErrorBuilder("CertificateService"),
	}
}

// Issue 签发证书并落库，私钥加密存储
// 签发失败时保留 failed 状态的记录用于排查
func (s *CertificateService) Issue(ctx context.Context, domains []string, credential *model.DnsCredential, stream *progress.Recorder) (*model.Certificate, error) {
	token, err := s.crypto.Decrypt(credential.ApiToken)
	if err != nil {
		return nil, err
	}
	provider, err := NewDnsChallengeProvider(credential, token, s.log)
	if err != nil {
		return nil, err
	}
	if err := provider.Validate(ctx); err != nil {
		return nil, err
	}

	cert := &model.Certificate{
		Domains: common.StringList(domains),
		Status:  model.CertStatusPending,
	}
	if err := s.certDao.Create(ctx, cert); err != nil {
		return nil, err
	}

	chainPEM, keyPEM, issueErr := s.acme.Issue(ctx, domains, provider, stream)
	if issueErr != nil {
		if updateErr := s.certDao.UpdateError(ctx, cert.ID, errorc.ParseError(issueErr).RootCause()); updateErr != nil {
			s.log.WithErr(updateErr).Error("记录签发失败状态失败")
		}
		return nil, issueErr
	}

	s.fillLeafInfo(cert, chainPEM, stream)

	encryptedKey, err := s.crypto.Encrypt(string(keyPEM))
	if err != nil {
		return nil, err
	}
	cert.ChainPem = string(chainPEM)
	cert.PrivkeyPem = encryptedKey
	cert.Status = model.CertStatusIssued
	cert.LastError = ""
	if _, err := s.certDao.UpdateById(ctx, cert.ID, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// Material 组装部署材料，私钥解密后返回
func (s *CertificateService) Material(cert *model.Certificate) (*model.CertificateMaterial, error) {
	keyPEM, err := s.crypto.Decrypt(cert.PrivkeyPem)
	if err != nil {
		return nil, err
	}
	material := &model.CertificateMaterial{
		Domains:       []string(cert.Domains),
		ChainPEM:      cert.ChainPem,
		PrivateKeyPEM: keyPEM,
	}
	if leaf, parseErr := parseLeafCertificate([]byte(cert.ChainPem)); parseErr == nil {
		material.LeafPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leaf.Raw}))
		material.NotAfter = leaf.NotAfter
	} else if cert.NotAfter != nil {
		material.NotAfter = *cert.NotAfter
	}
	return material, nil
}

// NextRenewalDate 按到期时间减提前量计算下次续期时间
func NextRenewalDate(notAfter time.Time, leadDays int) time.Time {
	return notAfter.AddDate(0, 0, -leadDays)
}

// fillLeafInfo 解析叶子证书填充元数据
// 解析失败时按签发时间加 90 天估算过期时间
func (s *CertificateService) fillLeafInfo(cert *model.Certificate, chainPEM []byte, stream *progress.Recorder) {
	leaf, err := parseLeafCertificate(chainPEM)
	if err != nil {
		fallback := time.Now().AddDate(0, 0, fallbackValidityDays)
		cert.NotAfter = &fallback
		s.log.WithErr(err).Warn("解析证书失败，按90天估算过期时间")
		if stream != nil {
			stream.Warnf(progress.PhaseRenewal, "解析证书失败，按90天估算过期时间")
		}
		return
	}
	cert.Issuer = leaf.Issuer.CommonName
	cert.SerialNumber = fmt.Sprintf("%x", leaf.SerialNumber)
	notBefore := leaf.NotBefore
	notAfter := leaf.NotAfter
	cert.NotBefore = &notBefore
	cert.NotAfter = &notAfter
}

// parseLeafCertificate 解析链中第一个证书
func parseLeafCertificate(chainPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(chainPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errorc.New("证书链不是有效的PEM格式", nil)
	}
	return x509.ParseCertificate(block.Bytes)
}
