package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"最大尝试次数", cfg.Traversal.MaxAttempts, 20},
		{"单次等待", cfg.Traversal.AttemptTimeout, 15 * time.Second},
		{"轮询间隔", cfg.Traversal.PollInterval, 300 * time.Millisecond},
		{"导航超时", cfg.Traversal.NavigationTimeout, 30 * time.Second},
		{"滚动步数", cfg.Traversal.ScrollSteps, 10},
		{"滚动间隔", cfg.Traversal.ScrollPause, 700 * time.Millisecond},
		{"收敛模式", cfg.Traversal.Convergence, "count"},
		{"分片参数", cfg.Shard.Param, "page"},
		{"最大页数", cfg.Shard.MaxPages, 12},
		{"并发数", cfg.Shard.Workers, 3},
		{"分片单次抽取", cfg.Shard.SinglePass, true},
		{"内容源模式", cfg.Browser.Mode, SourceDynamic},
		{"无头模式", cfg.Browser.Headless, true},
		{"输出格式", cfg.Output.Format, "csv"},
		{"条目选择器", cfg.Extract.ItemSelector, "li.product-list-grid__item"},
		{"日志级别", cfg.Logging.Level, "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("得到 %v, 期望 %v", tt.got, tt.want)
			}
		})
	}

	if len(cfg.Controls.LoadMore) == 0 || len(cfg.Controls.NextPage) == 0 || len(cfg.Controls.Consent) == 0 {
		t.Error("控件目录应回退到默认值")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("默认配置应通过校验: %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
traversal:
  max_attempts: 5
  attempt_timeout: 2s
  convergence: content_hash
shard:
  values: ["a", "b"]
  param: brand
browser:
  mode: static
controls:
  next_page:
    - name: suivant
      selector: a.next
      text: Suivant
extract:
  base_url: https://www.carrefour.fr
output:
  format: json
headers:
  X-Custom: valeur
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Traversal.MaxAttempts != 5 || cfg.Traversal.AttemptTimeout != 2*time.Second {
		t.Errorf("遍历配置未生效: %+v", cfg.Traversal)
	}
	if cfg.Traversal.PollInterval != 300*time.Millisecond {
		t.Error("未指定的字段应保留默认值")
	}
	if cfg.Shard.Param != "brand" || len(cfg.Shard.Values) != 2 {
		t.Errorf("分片配置未生效: %+v", cfg.Shard)
	}
	if len(cfg.Controls.NextPage) != 1 || cfg.Controls.NextPage[0].Text != "Suivant" {
		t.Errorf("控件目录未生效: %+v", cfg.Controls.NextPage)
	}
	if len(cfg.Controls.LoadMore) == 0 {
		t.Error("未配置的控件列表应回退默认值")
	}
	if cfg.Extract.BaseURL != "https://www.carrefour.fr" {
		t.Errorf("抽取配置未生效: %s", cfg.Extract.BaseURL)
	}
	if len(cfg.Headers) != 1 {
		t.Errorf("头部配置数 = %d, 期望 1", len(cfg.Headers))
	}

	req := cfg.TraversalRequest("https://www.carrefour.fr/promotions")
	if req.Convergence != models.ConvergeByHash || req.MaxAttempts != 5 {
		t.Errorf("遍历请求转换错误: %+v", req)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("配置应通过校验: %v", err)
	}
}

func TestLoadConfigDisableControls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
controls:
  load_more: []
  consent: []
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if len(cfg.Controls.LoadMore) != 0 {
		t.Errorf("显式配置为空的加载更多列表应保持为空: %+v", cfg.Controls.LoadMore)
	}
	if len(cfg.Controls.Consent) != 0 {
		t.Errorf("显式配置为空的同意弹窗列表应保持为空: %+v", cfg.Controls.Consent)
	}
	if len(cfg.Controls.NextPage) != len(models.DefaultControlCatalog().NextPage) {
		t.Errorf("未配置的下一页列表应回退默认值: %+v", cfg.Controls.NextPage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("关闭策略的配置应通过校验: %v", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("指定文件不存在", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		var cfgErr *models.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("期望ConfigError, 实际 %v", err)
		}
	})

	t.Run("YAML格式错误", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		_ = os.WriteFile(path, []byte("traversal: [unclosed"), 0644)
		if _, err := LoadConfig(path); err == nil {
			t.Error("期望返回解析错误")
		}
	})
}

func TestMergeCLIFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCLIFlags(CLIFlags{
		Format:      "sqlite",
		MaxAttempts: 7,
		Workers:     5,
		NoHeadless:  true,
		Mode:        SourceStatic,
	})

	if cfg.Output.Format != "sqlite" || cfg.Traversal.MaxAttempts != 7 || cfg.Shard.Workers != 5 {
		t.Errorf("命令行覆盖未生效: %+v", cfg)
	}
	if cfg.Browser.Headless {
		t.Error("--no-headless 应关闭无头模式")
	}
	if cfg.Shard.MaxPages != 12 {
		t.Error("未指定的参数不应覆盖配置")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"输出格式", func(c *Config) { c.Output.Format = "excel" }},
		{"内容源模式", func(c *Config) { c.Browser.Mode = "playwright" }},
		{"并发数", func(c *Config) { c.Shard.Workers = 0 }},
		{"尝试次数", func(c *Config) { c.Traversal.MaxAttempts = 0 }},
		{"收敛模式", func(c *Config) { c.Traversal.Convergence = "size" }},
		{"轮询间隔", func(c *Config) { c.Traversal.PollInterval = time.Minute }},
		{"滚动间隔", func(c *Config) { c.Traversal.ScrollPause = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("期望校验失败")
			}
		})
	}
}
