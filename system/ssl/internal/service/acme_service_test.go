package service

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-acme/lego/v4/acme"
)

func TestIsExistingAccountError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "账户已存在",
			err: &acme.ProblemDetails{
				Type:       "urn:ietf:params:acme:error:accountExists",
				HTTPStatus: http.StatusConflict,
			},
			want: true,
		},
		{
			name: "仅409状态码",
			err:  &acme.ProblemDetails{HTTPStatus: http.StatusConflict},
			want: true,
		},
		{
			name: "包装后仍可识别",
			err: fmt.Errorf("acme: %w", &acme.ProblemDetails{
				Type:       "urn:ietf:params:acme:error:accountExists",
				HTTPStatus: http.StatusConflict,
			}),
			want: true,
		},
		{
			name: "限流错误不找回",
			err: &acme.ProblemDetails{
				Type:       "urn:ietf:params:acme:error:rateLimited",
				HTTPStatus: http.StatusTooManyRequests,
			},
		},
		{
			name: "服务条款未同意不找回",
			err: &acme.ProblemDetails{
				Type:       "urn:ietf:params:acme:error:userActionRequired",
				HTTPStatus: http.StatusForbidden,
			},
		},
		{
			name: "网络错误不找回",
			err:  errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isExistingAccountError(tt.err); got != tt.want {
				t.Errorf("isExistingAccountError() = %v, 期望 %v", got, tt.want)
			}
		})
	}
}
