package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errorc "certsync/pkg/core/err"
)

func newPanOSForTest(baseURL string) *PanOSClient {
	return &PanOSClient{
		baseURL: baseURL + "/api/",
		apiKey:  "test-key",
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     testLog().WithEntryName("PanOSClient"),
		err:     errorc.NewErrorBuilder("PanOSClient"),
	}
}

func TestPanOSConfigureService(t *testing.T) {
	var gotXpath, gotElement, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotXpath = r.Form.Get("xpath")
		gotElement = r.Form.Get("element")
		gotKey = r.Form.Get("key")
		w.Write([]byte(`<response status="success"><result/></response>`))
	}))
	defer server.Close()

	client := newPanOSForTest(server.URL)
	if err := client.ConfigureService(context.Background(), "SSL-VPN_03.07.25_14.32"); err != nil {
		t.Fatalf("切换证书失败: %v", err)
	}
	if gotKey != "test-key" {
		t.Errorf("API Key 不符: %s", gotKey)
	}
	if gotXpath != panosSslProfileXpath {
		t.Errorf("xpath 不符: %s", gotXpath)
	}
	if gotElement != "<certificate>SSL-VPN_03.07.25_14.32</certificate>" {
		t.Errorf("element 不符: %s", gotElement)
	}
}

func TestPanOSImportOmitsEmptyPassphrase(t *testing.T) {
	var queries []map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query())
		w.Write([]byte(`<response status="success"><result/></response>`))
	}))
	defer server.Close()

	client := newPanOSForTest(server.URL)
	material := &DeployMaterial{ChainPEM: []byte("chain"), KeyPEM: []byte("key")}
	if err := client.ImportCertificate(context.Background(), "SSL-VPN_03.07.25_14.32", material); err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if _, ok := queries[0]["passphrase"]; ok {
		t.Error("私钥未加密时不应携带 passphrase 参数")
	}

	material.Pkcs12Password = "secret"
	if err := client.ImportCertificate(context.Background(), "SSL-VPN_03.07.25_14.32", material); err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if got := queries[1]["passphrase"]; len(got) != 1 || got[0] != "secret" {
		t.Errorf("passphrase 参数不符: %v", got)
	}
}

func TestPanOSErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<response status="error"><msg><line>invalid xpath</line></msg></response>`))
	}))
	defer server.Close()

	client := newPanOSForTest(server.URL)
	err := client.ConfigureService(context.Background(), "SSL-VPN_03.07.25_14.32")
	if err == nil {
		t.Fatal("status=error 应返回错误")
	}
	if !errorc.IsCode(err, errorc.ErrorCodeDeployConfig) {
		t.Errorf("错误码不符: %v", err)
	}
}

func TestPanOSVerifyActive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<response status="success"><result><ssl-tls-service-profile><entry name="default"><certificate>SSL-VPN_03.07.25_14.32</certificate></entry></ssl-tls-service-profile></result></response>`))
	}))
	defer server.Close()

	client := newPanOSForTest(server.URL)
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

func TestPanOSCleanupCommitsOnlyAfterDelete(t *testing.T) {
	now := time.Now()
	current := GenerateCertName("SSL-VPN", now)
	old := GenerateCertName("SSL-VPN", time.Date(now.Year(), now.Month(), now.Day(), 4, 15, 0, 0, now.Location()).AddDate(0, 0, -2))

	var deletes, commits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch {
		case r.Form.Get("type") == "commit":
			commits++
			w.Write([]byte(`<response status="success"><result/></response>`))
		case r.Form.Get("action") == "delete":
			deletes++
			w.Write([]byte(`<response status="success"><result/></response>`))
		default:
			fmt.Fprintf(w, `<response status="success"><result><certificate><entry name=%q/><entry name=%q/><entry name="manual-cert"/></certificate></result></response>`, old, current)
		}
	}))
	defer server.Close()

	client := newPanOSForTest(server.URL)
	if err := client.CleanupOldCertificates(context.Background(), current); err != nil {
		t.Fatalf("清理失败: %v", err)
	}
	if deletes != 1 {
		t.Errorf("应只删除 1 个旧证书, 实际 %d", deletes)
	}
	if commits != 1 {
		t.Errorf("删除后应提交一次, 实际 %d", commits)
	}
}
