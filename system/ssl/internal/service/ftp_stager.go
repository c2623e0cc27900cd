package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"certsync/pkg/core/config"
	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/utils"

	"github.com/jlaffaye/ftp"
)

// FtpStager 把 PKCS#12 文件临时放到 FTP 服务器上供防火墙拉取
// 导入完成后必须调用 Remove 清理
type FtpStager struct {
	cfg config.FtpConfig
	log *logger.Log
	err *errorc.ErrorBuilder
}

// NewFtpStager 创建 FTP 中转服务
func NewFtpStager(cfg config.FtpConfig, log *logger.Log) *FtpStager {
	return &FtpStager{
		cfg: cfg,
		log: log.WithEntryName("FtpStager"),
		err: errorc.NewErrorBuilder("FtpStager"),
	}
}

// StagedFile 已上传的中转文件
type StagedFile struct {
	// RemotePath FTP 服务器上的文件路径，用于删除
	RemotePath string
	// URL 带凭据的完整下载地址，交给防火墙执行导入
	URL string
}

// Stage 上传文件，文件名带随机后缀避免并发冲突
func (s *FtpStager) Stage(ctx context.Context, baseName string, data []byte) (*StagedFile, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	fileName := fmt.Sprintf("%s_%s.pfx", baseName, utils.RandomString(8))
	remotePath := path.Join(s.cfg.Path, fileName)

	if err := conn.Stor(remotePath, bytes.NewReader(data)); err != nil {
		return nil, s.err.New("上传证书文件到FTP失败", err).Network()
	}

	s.log.WithField("Path", remotePath).Info("证书文件已上传到FTP")
	return &StagedFile{
		RemotePath: remotePath,
		URL: fmt.Sprintf("ftp://%s:%s@%s%s", s.cfg.User, s.cfg.Password,
			s.cfg.Host, ensureLeadingSlash(remotePath)),
	}, nil
}

// Remove 删除中转文件，失败只记录日志
func (s *FtpStager) Remove(ctx context.Context, staged *StagedFile) {
	if staged == nil {
		return
	}
	conn, err := s.dial(ctx)
	if err != nil {
		s.log.WithErr(err).Warn("连接FTP清理中转文件失败")
		return
	}
	defer conn.Quit()

	if err := conn.Delete(staged.RemotePath); err != nil {
		s.log.WithErr(err).WithField("Path", staged.RemotePath).Warn("删除FTP中转文件失败")
		return
	}
	s.log.WithField("Path", staged.RemotePath).Info("FTP中转文件已删除")
}

func (s *FtpStager) dial(ctx context.Context) (*ftp.ServerConn, error) {
	if s.cfg.Host == "" {
		return nil, s.err.New("FTP服务器未配置", nil).Config()
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, s.err.New("连接FTP服务器失败", err).Network()
	}
	if err := conn.Login(s.cfg.User, s.cfg.Password); err != nil {
		conn.Quit()
		return nil, s.err.New("FTP登录失败", err).Network()
	}
	return conn, nil
}

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
