package service

import (
	"certsync/pkg/core/config"
	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/pkg/core/util"
)

// CryptoService 敏感字段的落库加解密服务
// API 令牌和私钥写库前加密，读取时解密
type CryptoService struct {
	salt string
	log  *logger.Log
	err  *errorc.ErrorBuilder
}

// NewCryptoService 创建加解密服务
func NewCryptoService(cfg config.CryptoConfig, log *logger.Log) *CryptoService {
	return &CryptoService{
		salt: cfg.Salt,
		log:  log.WithEntryName("CryptoService"),
		err:  errorc.NewErrorBuilder("CryptoService"),
	}
}

// Encrypt 加密明文，已加密的值原样返回
func (s *CryptoService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	out, err := util.EncryptAES(plaintext, s.salt)
	if err != nil {
		return "", s.err.New("加密敏感字段失败", err).Config()
	}
	return out, nil
}

// Decrypt 解密密文，未加密的值原样返回
func (s *CryptoService) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	out, err := util.DecryptAES(ciphertext, s.salt)
	if err != nil {
		return "", s.err.New("解密敏感字段失败", err).Config()
	}
	return out, nil
}
