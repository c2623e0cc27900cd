package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errorc "certsync/pkg/core/err"
)

func newCloudflareForTest(baseURL string) *CloudflareProvider {
	return &CloudflareProvider{
		token:   "cf-token",
		zoneID:  "zone123",
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     testLog().WithEntryName("CloudflareProvider"),
		err:     errorc.NewErrorBuilder("CloudflareProvider"),
	}
}

func TestCloudflareValidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zones/zone123" {
			t.Errorf("请求路径不符: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer cf-token" {
			t.Errorf("认证头不符: %s", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"success":true,"result":{"id":"zone123"}}`))
	}))
	defer server.Close()

	p := newCloudflareForTest(server.URL)
	if err := p.Validate(context.Background()); err != nil {
		t.Fatalf("校验失败: %v", err)
	}
}

func TestCloudflareValidateRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"errors":[{"message":"Invalid API token"}]}`))
	}))
	defer server.Close()

	p := newCloudflareForTest(server.URL)
	err := p.Validate(context.Background())
	if err == nil {
		t.Fatal("无效令牌应返回错误")
	}
	if !errorc.IsCode(err, errorc.ErrorCodeChallenge) {
		t.Errorf("错误码不符: %v", err)
	}
}

func TestNewCloudflareProviderDelegates(t *testing.T) {
	p, err := NewCloudflareProvider("cf-token", "zone123", testLog())
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	// 记录增删交给 lego 的 provider，多级子域和多段公共后缀的区域定位由其解析
	if p.inner == nil {
		t.Fatal("未挂载 lego provider")
	}
}

func TestNewCloudflareProviderValidation(t *testing.T) {
	if _, err := NewCloudflareProvider("", "zone", testLog()); err == nil {
		t.Error("缺少 token 应返回错误")
	}
	if _, err := NewCloudflareProvider("token", "", testLog()); err == nil {
		t.Error("缺少 zone_id 应返回错误")
	}
}
