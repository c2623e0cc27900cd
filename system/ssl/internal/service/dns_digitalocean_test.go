package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errorc "certsync/pkg/core/err"
)

func newDigitalOceanForTest(baseURL string) *DigitalOceanProvider {
	return &DigitalOceanProvider{
		token:   "do-token",
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     testLog().WithEntryName("DigitalOceanProvider"),
		err:     errorc.NewErrorBuilder("DigitalOceanProvider"),
	}
}

func TestDigitalOceanValidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/account" {
			t.Errorf("请求路径不符: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer do-token" {
			t.Errorf("认证头不符: %s", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"account":{"status":"active"}}`))
	}))
	defer server.Close()

	p := newDigitalOceanForTest(server.URL)
	if err := p.Validate(context.Background()); err != nil {
		t.Fatalf("校验失败: %v", err)
	}
}

func TestDigitalOceanValidateRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"id":"Unauthorized","message":"Unable to authenticate you"}`))
	}))
	defer server.Close()

	p := newDigitalOceanForTest(server.URL)
	err := p.Validate(context.Background())
	if err == nil {
		t.Fatal("无效令牌应返回错误")
	}
	if !errorc.IsCode(err, errorc.ErrorCodeChallenge) {
		t.Errorf("错误码不符: %v", err)
	}
}

func TestNewDigitalOceanProviderDelegates(t *testing.T) {
	p, err := NewDigitalOceanProvider("do-token", testLog())
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	if p.inner == nil {
		t.Fatal("未挂载 lego provider")
	}
}

func TestNewDigitalOceanProviderValidation(t *testing.T) {
	if _, err := NewDigitalOceanProvider("", testLog()); err == nil {
		t.Error("缺少 token 应返回错误")
	}
}
