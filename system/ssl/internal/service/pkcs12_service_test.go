package service

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// makeTestChain 生成一个自签 CA 和它签发的叶子证书
func makeTestChain(t *testing.T) (chainPEM, keyPEM []byte) {
	t.Helper()

	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("生成CA私钥失败: %v", err)
	}
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("签发CA证书失败: %v", err)
	}
	caCert, _ := x509.ParseCertificate(caDER)

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("生成叶子私钥失败: %v", err)
	}
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "vpn.example.com"},
		DNSNames:     []string{"vpn.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(0, 3, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, caCert, &leafKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("签发叶子证书失败: %v", err)
	}

	var chain bytes.Buffer
	pem.Encode(&chain, &pem.Block{Type: "CERTIFICATE", Bytes: leafDER})
	pem.Encode(&chain, &pem.Block{Type: "CERTIFICATE", Bytes: caDER})

	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(leafKey),
	})
	return chain.Bytes(), keyPEM
}

func TestPkcs12PackageRoundTrip(t *testing.T) {
	chainPEM, keyPEM := makeTestChain(t)
	svc := NewPkcs12Service(testLog())

	data, err := svc.Package(chainPEM, keyPEM, "pfx-password")
	if err != nil {
		t.Fatalf("打包失败: %v", err)
	}

	_, leaf, caCerts, err := pkcs12.DecodeChain(data, "pfx-password")
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if leaf.Subject.CommonName != "vpn.example.com" {
		t.Errorf("叶子证书 CN 不符: %s", leaf.Subject.CommonName)
	}
	if len(caCerts) != 1 || caCerts[0].Subject.CommonName != "Test Root CA" {
		t.Errorf("CA 链不符: %v", caCerts)
	}
}

func TestPkcs12PackageWrongPassword(t *testing.T) {
	chainPEM, keyPEM := makeTestChain(t)
	svc := NewPkcs12Service(testLog())

	data, err := svc.Package(chainPEM, keyPEM, "pfx-password")
	if err != nil {
		t.Fatalf("打包失败: %v", err)
	}
	if _, _, _, err := pkcs12.DecodeChain(data, "wrong"); err == nil {
		t.Fatal("错误口令应解码失败")
	}
}

func TestPkcs12PackageInvalidInput(t *testing.T) {
	svc := NewPkcs12Service(testLog())
	if _, err := svc.Package([]byte("not pem"), []byte("not pem"), "pwd"); err == nil {
		t.Fatal("非法输入应返回错误")
	}
	chainPEM, _ := makeTestChain(t)
	if _, err := svc.Package(chainPEM, []byte("not pem"), "pwd"); err == nil {
		t.Fatal("非法私钥应返回错误")
	}
}
