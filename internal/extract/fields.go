package extract

import (
	"fmt"
	"regexp"
)

// PresetRetail 零售列表预设: 追加价格/EAN/Nutri-Score/促销等派生字段
const PresetRetail = "retail"

// DefaultItemSelector 默认的条目选择器
const DefaultItemSelector = "li.product-list-grid__item"

// DefaultKeyField 默认的身份键字段
const DefaultKeyField = "url"

// FieldSpec 字段抽取规则
type FieldSpec struct {
	Name      string   `mapstructure:"name" json:"name"`
	Selectors []string `mapstructure:"selectors" json:"selectors"` // 依次尝试,取第一个非空值
	Attr      string   `mapstructure:"attr" json:"attr,omitempty"` // 为空时取文本
	Pattern   string   `mapstructure:"pattern" json:"pattern,omitempty"`
	Absolute  bool     `mapstructure:"absolute" json:"absolute,omitempty"` // 按基准地址解析为绝对URL

	re *regexp.Regexp
}

// Config 抽取配置
type Config struct {
	ItemSelector string      `mapstructure:"item_selector"`
	BaseURL      string      `mapstructure:"base_url"` // 为空时使用页面位置
	KeyField     string      `mapstructure:"key_field"`
	Preset       string      `mapstructure:"preset"`
	Fields       []FieldSpec `mapstructure:"fields"`
}

// DefaultFields 零售列表的基础字段
func DefaultFields() []FieldSpec {
	return []FieldSpec{
		{Name: "name", Selectors: []string{".product-list-card-plp-grid__title"}},
		{Name: "unit_price", Selectors: []string{".product-list-card-plp-grid__per-unit-label"}},
		{Name: "url", Selectors: []string{`a[href^="/p/"]`}, Attr: "href", Absolute: true},
	}
}

// DefaultConfig 默认抽取配置
func DefaultConfig() Config {
	return Config{
		ItemSelector: DefaultItemSelector,
		KeyField:     DefaultKeyField,
		Preset:       PresetRetail,
		Fields:       DefaultFields(),
	}
}

// retailColumns 零售预设的输出列顺序
var retailColumns = []string{"name", "price", "unit_price", "ean", "nutriscore", "promo", "url"}

// compile 编译字段正则并检查配置
func (c *Config) compile() error {
	if c.ItemSelector == "" {
		c.ItemSelector = DefaultItemSelector
	}
	if c.KeyField == "" {
		c.KeyField = DefaultKeyField
	}
	if len(c.Fields) == 0 {
		c.Fields = DefaultFields()
	} else {
		c.Fields = append([]FieldSpec(nil), c.Fields...)
	}
	if c.Preset != "" && c.Preset != PresetRetail {
		return fmt.Errorf("未知的抽取预设: %s", c.Preset)
	}

	seen := make(map[string]bool, len(c.Fields))
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("第%d个字段缺少名称", i+1)
		}
		if seen[f.Name] {
			return fmt.Errorf("字段名称重复: %s", f.Name)
		}
		seen[f.Name] = true
		if len(f.Selectors) == 0 {
			return fmt.Errorf("字段 %s 缺少选择器", f.Name)
		}
		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return fmt.Errorf("字段 %s 的正则无效: %w", f.Name, err)
			}
			f.re = re
		}
	}
	return nil
}

// Columns 输出列顺序
func (c Config) Columns() []string {
	var cols []string
	seen := make(map[string]bool)
	if c.Preset == PresetRetail {
		for _, name := range retailColumns {
			cols = append(cols, name)
			seen[name] = true
		}
	}
	for _, f := range c.Fields {
		if !seen[f.Name] {
			cols = append(cols, f.Name)
			seen[f.Name] = true
		}
	}
	return cols
}
