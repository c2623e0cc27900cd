package service

import (
	"context"
	"fmt"
	"time"

	errorc "certsync/pkg/core/err"
	"certsync/pkg/core/logger"
	"certsync/system/ssl/internal/model"
)

// DeployMaterial 部署到防火墙的证书材料
// 不同厂商取用不同字段
type DeployMaterial struct {
	// ChainPEM 证书链，叶子在前
	ChainPEM []byte
	// KeyPEM 私钥
	KeyPEM []byte
	// Pkcs12URL PKCS#12 文件的 FTP 下载地址，SonicWall 走这里
	Pkcs12URL string
	// Pkcs12Password PKCS#12 文件口令
	Pkcs12Password string
}

// FirewallClient 防火墙证书部署的统一接口
// 部署流程固定为 Import、Configure、Commit、Verify，校验通过后才允许 Cleanup
type FirewallClient interface {
	// TestConnection 校验设备可达且凭据有效
	TestConnection(ctx context.Context) error
	// ImportCertificate 导入证书，重复导入同名证书视为成功
	ImportCertificate(ctx context.Context, name string, material *DeployMaterial) error
	// ConfigureService 把 SSL-VPN 服务切换到指定证书
	ConfigureService(ctx context.Context, name string) error
	// Commit 提交配置，无事务语义的厂商为空操作
	Commit(ctx context.Context) error
	// VerifyActive 校验服务当前使用的证书
	VerifyActive(ctx context.Context, name string) (bool, error)
	// CleanupOldCertificates 删除本系统早先部署的旧证书，当前证书除外
	CleanupOldCertificates(ctx context.Context, currentName string) error
	// Close 释放设备侧会话
	Close(ctx context.Context) error
}

// firewallFactory 按厂商创建客户端，password 与 apiToken 已解密
type firewallFactory func(target *model.TargetSystem, password, apiToken string, log *logger.Log) (FirewallClient, error)

var firewallFactories = map[model.FirewallVendor]firewallFactory{
	model.VendorFortiGate: func(target *model.TargetSystem, password, apiToken string, log *logger.Log) (FirewallClient, error) {
		return NewFortiGateClient(target, apiToken, log)
	},
	model.VendorSonicWall: func(target *model.TargetSystem, password, apiToken string, log *logger.Log) (FirewallClient, error) {
		return NewSonicWallClient(target, password, log)
	},
	model.VendorPanOs: func(target *model.TargetSystem, password, apiToken string, log *logger.Log) (FirewallClient, error) {
		return NewPanOSClient(target, apiToken, log)
	},
}

// NewFirewallClient 根据目标系统创建对应厂商的客户端
func NewFirewallClient(target *model.TargetSystem, password, apiToken string, log *logger.Log) (FirewallClient, error) {
	factory, ok := firewallFactories[target.Vendor]
	if !ok {
		return nil, errorc.New("不支持的防火墙厂商: "+string(target.Vendor), nil).WithCode(errorc.ErrorCodeConfig)
	}
	return factory(target, password, apiToken, log)
}

const certNameTimeLayout = "01.02.06_15.04"

// GenerateCertName 生成带时间戳的证书名，同一分钟内重复部署会得到同名证书
func GenerateCertName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s", prefix, now.Format(certNameTimeLayout))
}

// certNamePrefixOf 从完整证书名中取回前缀，时间戳固定为 14 个字符
func certNamePrefixOf(name string) string {
	suffixLen := len(certNameTimeLayout) + 1
	if len(name) <= suffixLen {
		return name
	}
	return name[:len(name)-suffixLen]
}

// oldCertNameCandidates 枚举本系统可能在历史部署中用过的证书名
// 覆盖最近 7 天每 4 小时的刻钟时间点，外加最近 24 小时内的全部刻钟时间点
func oldCertNameCandidates(prefix string, now time.Time, currentName string) []string {
	quarterMinutes := []int{0, 15, 30, 45}
	seen := make(map[string]struct{})
	var names []string

	add := func(t time.Time) {
		name := GenerateCertName(prefix, t)
		if name == currentName {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for day := 1; day <= 7; day++ {
		base := now.AddDate(0, 0, -day)
		for hour := 0; hour < 24; hour += 4 {
			for _, minute := range quarterMinutes {
				add(time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, base.Location()))
			}
		}
	}

	for hourBack := 1; hourBack <= 24; hourBack++ {
		base := now.Add(-time.Duration(hourBack) * time.Hour)
		for _, minute := range quarterMinutes {
			add(time.Date(base.Year(), base.Month(), base.Day(), base.Hour(), minute, 0, 0, base.Location()))
		}
	}

	return names
}
