package service

import (
	"testing"

	"certsync/pkg/core/model/common"
	"certsync/system/ssl/internal/model"
)

func TestNewDnsChallengeProvider(t *testing.T) {
	zone := common.JSON{"zone_id": "zone123"}

	tests := []struct {
		name       string
		credential *model.DnsCredential
		token      string
		wantErr    bool
	}{
		{
			name:       "cloudflare",
			credential: &model.DnsCredential{Provider: model.DnsProviderCloudflare, ExtraConfig: &zone},
			token:      "token",
		},
		{
			name:       "cloudflare缺少zone_id",
			credential: &model.DnsCredential{Provider: model.DnsProviderCloudflare},
			token:      "token",
			wantErr:    true,
		},
		{
			name:       "digitalocean",
			credential: &model.DnsCredential{Provider: model.DnsProviderDigitalOcean},
			token:      "token",
		},
		{
			name:       "digitalocean缺少token",
			credential: &model.DnsCredential{Provider: model.DnsProviderDigitalOcean},
			wantErr:    true,
		},
		{
			name:       "未知服务商",
			credential: &model.DnsCredential{Provider: model.DnsProvider("route53")},
			token:      "token",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewDnsChallengeProvider(tt.credential, tt.token, testLog())
			if tt.wantErr {
				if err == nil {
					t.Fatal("应返回错误")
				}
				return
			}
			if err != nil {
				t.Fatalf("创建失败: %v", err)
			}
			if provider == nil {
				t.Fatal("提供者为空")
			}
		})
	}
}
