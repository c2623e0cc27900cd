package service

import (
	"crypto/x509"
	"encoding/pem"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"

	"software.sslmate.com/src/go-pkcs12"
)

// Pkcs12Service 把 PEM 证书链和私钥打包为 PKCS#12 文件
// 防火墙导入要求证书和私钥在同一个文件里
type Pkcs12Service struct {
	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewPkcs12Service 创建 PKCS#12 打包服务
func NewPkcs12Service(log *logger.Log) *Pkcs12Service {
	return &Pkcs12Service{
		log: log.WithEntryName("Pkcs12Service"),
		err: errorc.NewErrorBuilder("Pkcs12Service"),
	}
}

// Package 打包证书链（叶子在前）和私钥，password 为输出文件口令
func (s *Pkcs12Service) Package(chainPEM, keyPEM []byte, password string) ([]byte, error) {
	certs, err := parseCertChain(chainPEM)
	if err != nil {
		return nil, s.err.New("解析证书链失败", err).Config()
	}
	if len(certs) == 0 {
		return nil, s.err.New("证书链为空", nil).Config()
	}

	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, s.err.New("解析私钥失败", err).Config()
	}

	leaf := certs[0]
	caCerts := certs[1:]
	data, err := pkcs12.Modern2023.Encode(key, leaf, caCerts, password)
	if err != nil {
		return nil, s.err.New("PKCS#12编码失败", err).Config()
	}
	return data, nil
}

// parseCertChain 按出现顺序解析 PEM 中的全部证书块
func parseCertChain(chainPEM []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := chainPEM
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

// parsePrivateKey 依次尝试 PKCS#8、PKCS#1、EC 编码
func parsePrivateKey(keyPEM []byte) (interface{}, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errorc.New("私钥不是有效的PEM格式", nil)
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, errorc.New("无法识别的私钥编码", nil)
}
