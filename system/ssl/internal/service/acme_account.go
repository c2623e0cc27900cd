package service

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	errorc "certsync/pkg/core/err"

	"github.com/go-acme/lego/v4/registration"
)

// acmeUser 实现 lego 的 ACME 账户接口
type acmeUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *acmeUser) GetEmail() string {
	return u.email
}

func (u *acmeUser) GetRegistration() *registration.Resource {
	return u.registration
}

func (u *acmeUser) GetPrivateKey() crypto.PrivateKey {
	return u.key
}

// loadOrCreateAccountKey 加载账户私钥，不存在时生成 RSA 2048 并落盘
// 私钥文件权限 0600
func loadOrCreateAccountKey(path string) (crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, errorc.New("账户私钥文件不是有效的PEM格式", nil).WithCode(errorc.ErrorCodeConfig)
		}
		key, parseErr := x509.ParsePKCS1PrivateKey(block.Bytes)
		if parseErr != nil {
			pkcs8, pkcs8Err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if pkcs8Err != nil {
				return nil, errorc.New("解析账户私钥失败", parseErr).WithCode(errorc.ErrorCodeConfig)
			}
			return pkcs8.(crypto.PrivateKey), nil
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, errorc.New("读取账户私钥文件失败", err).WithCode(errorc.ErrorCodeConfig)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errorc.New("生成账户私钥失败", err).WithCode(errorc.ErrorCodeConfig)
	}

	if mkErr := os.MkdirAll(filepath.Dir(path), 0700); mkErr != nil {
		return nil, errorc.New("创建账户私钥目录失败", mkErr).WithCode(errorc.ErrorCodeConfig)
	}
	pemData := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if writeErr := os.WriteFile(path, pemData, 0600); writeErr != nil {
		return nil, errorc.New("写入账户私钥文件失败", writeErr).WithCode(errorc.ErrorCodeConfig)
	}
	return key, nil
}
