package models

import (
	"fmt"
	"strings"
)

// ControlDescriptor 页面控件签名
// Text 非空时,元素文本或aria-label需包含该子串(忽略大小写)
type ControlDescriptor struct {
	Name     string `mapstructure:"name" json:"name"`
	Selector string `mapstructure:"selector" json:"selector"`
	Text     string `mapstructure:"text" json:"text,omitempty"`
}

// MatchText 判断元素文本是否满足签名
func (d ControlDescriptor) MatchText(candidates ...string) bool {
	if d.Text == "" {
		return true
	}
	want := strings.ToLower(d.Text)
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), want) {
			return true
		}
	}
	return false
}

func (d ControlDescriptor) String() string {
	if d.Text != "" {
		return fmt.Sprintf("%s:has-text(%q)", d.Selector, d.Text)
	}
	return d.Selector
}

// ControlCatalog 按优先级排列的控件签名目录
type ControlCatalog struct {
	LoadMore []ControlDescriptor `mapstructure:"load_more" json:"load_more"`
	NextPage []ControlDescriptor `mapstructure:"next_page" json:"next_page"`
	Consent  []ControlDescriptor `mapstructure:"consent" json:"consent"`
}

// DefaultControlCatalog 零售列表页的默认控件
func DefaultControlCatalog() ControlCatalog {
	return ControlCatalog{
		LoadMore: []ControlDescriptor{
			{Name: "load-more-aria", Selector: `button[aria-label="Afficher les produits suivants"]`},
			{Name: "load-more-text", Selector: "button", Text: "Afficher les produits suivants"},
			{Name: "voir-plus", Selector: "button", Text: "Voir plus"},
			{Name: "afficher-plus", Selector: "button", Text: "Afficher plus"},
		},
		NextPage: []ControlDescriptor{
			{Name: "rel-next", Selector: `a[rel="next"]`},
			{Name: "next-link-aria", Selector: `a[aria-label="Page suivante"]`},
			{Name: "next-button-aria", Selector: `button[aria-label="Page suivante"]`},
			{Name: "next-link-text", Selector: "a", Text: "Suivant"},
			{Name: "next-button-text", Selector: "button", Text: "Suivant"},
		},
		Consent: []ControlDescriptor{
			{Name: "onetrust-reject", Selector: "#onetrust-reject-all-handler"},
		},
	}
}

// 目录各分组在配置文件中的键名
const (
	ControlsLoadMore = "load_more"
	ControlsNextPage = "next_page"
	ControlsConsent  = "consent"
)

// WithDefaults 未配置的分组回退到默认目录
// 显式配置为空列表的分组保持为空,对应的策略因此被关闭
func (c ControlCatalog) WithDefaults(configured func(group string) bool) ControlCatalog {
	def := DefaultControlCatalog()
	if configured == nil {
		configured = func(string) bool { return false }
	}
	if !configured(ControlsLoadMore) {
		c.LoadMore = def.LoadMore
	}
	if !configured(ControlsNextPage) {
		c.NextPage = def.NextPage
	}
	if !configured(ControlsConsent) {
		c.Consent = def.Consent
	}
	return c
}
