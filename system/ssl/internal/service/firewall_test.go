package service

import (
	"strings"
	"testing"
	"time"

	"certsync/pkg/core/logger"
	"certsync/system/ssl/internal/model"
)

func testLog() *logger.Log {
	return logger.GetLogger()
}

func TestGenerateCertName(t *testing.T) {
	now := time.Date(2025, 3, 7, 14, 32, 50, 0, time.UTC)
	got := GenerateCertName("SSL-VPN", now)
	want := "SSL-VPN_03.07.25_14.32"
	if got != want {
		t.Fatalf("证书名不符，期望 %s 实际 %s", want, got)
	}
}

func TestCertNamePrefixOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"SSL-VPN_03.07.25_14.32", "SSL-VPN"},
		{"Edge_FW_01.01.24_00.00", "Edge_FW"},
		{"short", "short"},
	}
	for _, tt := range tests {
		if got := certNamePrefixOf(tt.name); got != tt.want {
			t.Errorf("certNamePrefixOf(%s) = %s, 期望 %s", tt.name, got, tt.want)
		}
	}
}

func TestOldCertNameCandidates(t *testing.T) {
	now := time.Date(2025, 3, 7, 14, 32, 0, 0, time.UTC)
	current := GenerateCertName("SSL-VPN", now)
	candidates := oldCertNameCandidates("SSL-VPN", now, current)

	if len(candidates) == 0 {
		t.Fatal("候选列表为空")
	}

	seen := make(map[string]struct{})
	for _, name := range candidates {
		if name == current {
			t.Fatalf("候选列表包含当前证书名 %s", name)
		}
		if _, dup := seen[name]; dup {
			t.Fatalf("候选列表存在重复项 %s", name)
		}
		seen[name] = struct{}{}
		if !strings.HasPrefix(name, "SSL-VPN_") {
			t.Fatalf("候选名前缀不符: %s", name)
		}
	}

	// 昨天凌晨整点在 7 天 x 4 小时网格内
	yesterday := "SSL-VPN_03.06.25_00.00"
	if _, ok := seen[yesterday]; !ok {
		t.Errorf("候选列表缺少 %s", yesterday)
	}
	// 3 小时前的刻钟时间点在 24 小时网格内
	recent := "SSL-VPN_03.07.25_11.15"
	if _, ok := seen[recent]; !ok {
		t.Errorf("候选列表缺少 %s", recent)
	}
}

func TestNewFirewallClientUnknownVendor(t *testing.T) {
	target := &model.TargetSystem{Vendor: model.FirewallVendor("cisco"), Host: "fw.example.com", Port: 443}
	if _, err := NewFirewallClient(target, "pwd", "token", testLog()); err == nil {
		t.Fatal("未知厂商应返回错误")
	}
}

func TestNewFirewallClientMissingCredentials(t *testing.T) {
	tests := []struct {
		vendor model.FirewallVendor
	}{
		{model.VendorFortiGate},
		{model.VendorSonicWall},
		{model.VendorPanOs},
	}
	for _, tt := range tests {
		target := &model.TargetSystem{Vendor: tt.vendor, Host: "fw.example.com", Port: 443}
		if _, err := NewFirewallClient(target, "", "", testLog()); err == nil {
			t.Errorf("厂商 %s 缺少凭据应返回错误", tt.vendor)
		}
	}
}
