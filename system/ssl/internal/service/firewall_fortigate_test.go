package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errorc "certsync/pkg/core/err"
)

func newFortiGateForTest(baseURL string) *FortiGateClient {
	return &FortiGateClient{
		baseURL: baseURL,
		token:   "test-token",
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     testLog().WithEntryName("FortiGateClient"),
		err:     errorc.NewErrorBuilder("FortiGateClient"),
	}
}

func TestFortiGateImportCertificate(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/monitor/vpn-certificate/local/import" {
			t.Errorf("请求路径不符: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		if payload["certname"] != "SSL-VPN_03.07.25_14.32" {
			t.Errorf("证书名不符: %v", payload["certname"])
		}
		if payload["scope"] != "global" {
			t.Errorf("scope 不符: %v", payload["scope"])
		}
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	client := newFortiGateForTest(server.URL)
	material := &DeployMaterial{ChainPEM: []byte("cert"), KeyPEM: []byte("key")}
	if err := client.ImportCertificate(context.Background(), "SSL-VPN_03.07.25_14.32", material); err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("认证头不符: %s", gotAuth)
	}
}

func TestFortiGateImportAlreadyExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"error","error":-23}`))
	}))
	defer server.Close()

	client := newFortiGateForTest(server.URL)
	material := &DeployMaterial{ChainPEM: []byte("cert"), KeyPEM: []byte("key")}
	if err := client.ImportCertificate(context.Background(), "SSL-VPN_03.07.25_14.32", material); err != nil {
		t.Fatalf("同名证书已存在应视为成功: %v", err)
	}
}

func TestFortiGateImportOtherError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"error","error":-5}`))
	}))
	defer server.Close()

	client := newFortiGateForTest(server.URL)
	material := &DeployMaterial{ChainPEM: []byte("cert"), KeyPEM: []byte("key")}
	err := client.ImportCertificate(context.Background(), "SSL-VPN_03.07.25_14.32", material)
	if err == nil {
		t.Fatal("其他业务错误不应视为成功")
	}
	if !errorc.IsCode(err, errorc.ErrorCodeDeployImport) {
		t.Errorf("错误码不符: %v", err)
	}
}

func TestFortiGateConfigureAndVerify(t *testing.T) {
	active := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cmdb/vpn.ssl/settings" {
			t.Errorf("请求路径不符: %s", r.URL.Path)
		}
		switch r.Method {
		case http.MethodPut:
			var payload map[string]interface{}
			json.NewDecoder(r.Body).Decode(&payload)
			active, _ = payload["servercert"].(string)
			w.Write([]byte(`{"status":"success"}`))
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"results": map[string]interface{}{"servercert": active},
			})
		}
	}))
	defer server.Close()

	client := newFortiGateForTest(server.URL)
	if err := client.ConfigureService(context.Background(), "SSL-VPN_03.07.25_14.32"); err != nil {
		t.Fatalf("切换证书失败: %v", err)
	}
	if err := client.Commit(context.Background()); err != nil {
		t.Fatalf("提交不应报错: %v", err)
	}

	ok, err := client.VerifyActive(context.Background(), "SSL-VPN_03.07.25_14.32")
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if !ok {
		t.Fatal("校验应通过")
	}

	ok, err = client.VerifyActive(context.Background(), "SSL-VPN_01.01.24_00.00")
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if ok {
		t.Fatal("非当前证书校验应不通过")
	}
}
