package utils

import (
	"net/http"
	"strings"
	"testing"
)

func TestHeaderValidator(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		headerValue string
		expectError bool
	}{
		{"合法头部", "User-Agent", "Mozilla/5.0", false},
		{"合法头部-数字", "X-Request-ID-123", "abc", false},
		{"合法值-空字符串", "X-Empty", "", false},
		{"合法值-法语重音不允许", "X-Lang", "français", true},
		{"禁止头部-Host", "Host", "example.com", true},
		{"禁止头部-不区分大小写", "content-length", "12", true},
		{"非法名称-空格", "User Agent", "value", true},
		{"非法名称-下划线", "User_Agent", "value", true},
		{"非法值-控制字符", "X-Bad", "value\x00bad", true},
		{"非法值-超长", "X-Long", strings.Repeat("a", MaxHeaderValueLength+1), true},
		{"合法值-最大长度", "X-Long", strings.Repeat("a", MaxHeaderValueLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateHeader(tt.headerName, tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidatorValidate(t *testing.T) {
	validator := NewHeaderValidator()

	ok := http.Header{"User-Agent": {"Mozilla/5.0"}, "Accept-Language": {"fr-FR"}}
	if err := validator.Validate(ok); err != nil {
		t.Errorf("期望无错误, 实际错误=%v", err)
	}

	bad := http.Header{"User-Agent": {"Mozilla/5.0"}, "Transfer-Encoding": {"chunked"}}
	if err := validator.Validate(bad); err == nil {
		t.Error("禁止头部应返回错误")
	}
}

func TestHeaderRedactor(t *testing.T) {
	redactor := NewHeaderRedactor()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer secret-token")
	headers.Set("X-Api-Key", "key12345678")
	headers.Set("X-Token", "abc")
	headers.Set("User-Agent", "Mozilla/5.0")

	redacted := redactor.Redact(headers)

	tests := []struct {
		name string
		want string
	}{
		{"Authorization", "Bearer ***"},
		{"X-Api-Key", "key1***5678"},
		{"X-Token", "***"},
		{"User-Agent", "Mozilla/5.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redacted[tt.name]; got != tt.want {
				t.Errorf("脱敏结果 = %q, 期望 %q", got, tt.want)
			}
		})
	}

	if s := redactor.RedactToString(headers); strings.Contains(s, "secret-token") {
		t.Errorf("日志字符串不应包含敏感值: %s", s)
	}
}
