package service

import (
	"testing"
	"time"

	errorc "certsync/pkg/core/err"
	"certsync/system/ssl/internal/model"
)

func TestParseLeafCertificate(t *testing.T) {
	chainPEM, _ := makeTestChain(t)
	leaf, err := parseLeafCertificate(chainPEM)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if leaf.Subject.CommonName != "vpn.example.com" {
		t.Errorf("叶子证书 CN 不符: %s", leaf.Subject.CommonName)
	}

	if _, err := parseLeafCertificate([]byte("garbage")); err == nil {
		t.Fatal("非法输入应返回错误")
	}
}

func TestNextRenewalDate(t *testing.T) {
	notAfter := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)
	got := NextRenewalDate(notAfter, 30)
	want := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("续期时间不符，期望 %v 实际 %v", want, got)
	}
}

func TestFillLeafInfo(t *testing.T) {
	svc := &CertificateService{
		log: testLog().WithEntryName("CertificateService"),
		err: errorc.NewErrorBuilder("CertificateService"),
	}

	chainPEM, _ := makeTestChain(t)
	cert := &model.Certificate{}
	svc.fillLeafInfo(cert, chainPEM, nil)
	if cert.Issuer != "Test Root CA" {
		t.Errorf("签发机构不符: %s", cert.Issuer)
	}
	if cert.NotAfter == nil || cert.NotBefore == nil {
		t.Fatal("有效期未填充")
	}
	if cert.SerialNumber == "" {
		t.Error("序列号未填充")
	}
}

func TestFillLeafInfoFallback(t *testing.T) {
	svc := &CertificateService{
		log: testLog().WithEntryName("CertificateService"),
		err: errorc.NewErrorBuilder("CertificateService"),
	}

	cert := &model.Certificate{}
	before := time.Now().AddDate(0, 0, fallbackValidityDays).Add(-time.Minute)
	svc.fillLeafInfo(cert, []byte("unparseable"), nil)
	after := time.Now().AddDate(0, 0, fallbackValidityDays).Add(time.Minute)

	if cert.NotAfter == nil {
		t.Fatal("解析失败时应估算过期时间")
	}
	if cert.NotAfter.Before(before) || cert.NotAfter.After(after) {
		t.Fatalf("估算过期时间超出 90 天窗口: %v", cert.NotAfter)
	}
}
