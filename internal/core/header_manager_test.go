package core

import (
	"errors"
	"testing"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

func TestHeaderManager_GetMergedHeaders(t *testing.T) {
	t.Run("默认头部存在", func(t *testing.T) {
		hm, err := NewHeaderManager("", nil, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		headers := hm.GetMergedHeaders()
		if headers.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("默认User-Agent错误: %s", headers.Get("User-Agent"))
		}
		if headers.Get("Accept-Language") == "" {
			t.Error("应包含默认Accept-Language")
		}
	})

	t.Run("优先级: 默认 < 配置 < 命令行", func(t *testing.T) {
		hm, err := NewHeaderManager("Config-UA/1.0",
			map[string]string{"x-custom": "config", "referer": "https://www.carrefour.fr/"},
			[]string{"X-Custom: cli"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		headers := hm.GetMergedHeaders()
		if headers.Get("User-Agent") != "Config-UA/1.0" {
			t.Errorf("配置UA应覆盖默认, 实际 %s", headers.Get("User-Agent"))
		}
		if headers.Get("X-Custom") != "cli" {
			t.Errorf("命令行应覆盖配置, 实际 %s", headers.Get("X-Custom"))
		}
		if headers.Get("Referer") != "https://www.carrefour.fr/" {
			t.Error("配置头部名称应被规范化")
		}
	})
}

func TestHeaderManager_GetHeaders(t *testing.T) {
	t.Run("非法命令行参数返回错误", func(t *testing.T) {
		if _, err := NewHeaderManager("", nil, []string{"InvalidFormat"}); err == nil {
			t.Error("期望返回错误, 但成功了")
		}
	})

	t.Run("禁止头部返回验证错误", func(t *testing.T) {
		hm, err := NewHeaderManager("", nil, []string{"Host: example.com"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		_, err = hm.GetHeaders()
		var headerErr *models.HeaderError
		if !errors.As(err, &headerErr) {
			t.Fatalf("期望HeaderError, 实际 %v", err)
		}
		if headerErr.Source != "命令行" {
			t.Errorf("错误来源 = %s, 期望 命令行", headerErr.Source)
		}
	})

	t.Run("配置头部同样校验", func(t *testing.T) {
		hm, _ := NewHeaderManager("", map[string]string{"Content-Length": "1"}, nil)
		if _, err := hm.GetHeaders(); err == nil {
			t.Error("期望返回验证错误, 但成功了")
		}
	})

	t.Run("敏感头部脱敏", func(t *testing.T) {
		hm, _ := NewHeaderManager("", nil, []string{"Authorization: Bearer secret-token-12345"})
		safe := hm.GetSafeHeaders()
		if safe["Authorization"] != "Bearer ***" {
			t.Errorf("期望Authorization='Bearer ***', 实际='%s'", safe["Authorization"])
		}
	})
}
