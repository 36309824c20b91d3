package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/RecoveryAshes/ListHarvest/internal/crawlers"
	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

// SelectorExtractor 基于CSS选择器的抽取器
type SelectorExtractor struct {
	config Config
}

// NewSelectorExtractor 创建抽取器,配置无效时返回错误
func NewSelectorExtractor(config Config) (*SelectorExtractor, error) {
	if err := config.compile(); err != nil {
		return nil, fmt.Errorf("抽取配置无效: %w", err)
	}
	return &SelectorExtractor{config: config}, nil
}

// Columns 输出列顺序
func (se *SelectorExtractor) Columns() []string {
	return se.config.Columns()
}

// ItemSelector 条目选择器
func (se *SelectorExtractor) ItemSelector() string {
	return se.config.ItemSelector
}

// Extract 抽取从start开始的条目
// 单个条目失败记为ExtractionFailure并继续,多个失败用errors.Join合并
func (se *SelectorExtractor) Extract(ctx context.Context, h crawlers.Handle, start int) ([]models.Record, error) {
	items, err := h.Items(ctx, start)
	if err != nil {
		return nil, &models.ExtractionFailure{Index: -1, Err: err}
	}

	base := se.config.BaseURL
	if base == "" {
		base = h.Location()
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, &models.ExtractionFailure{Index: -1, Err: fmt.Errorf("基准地址无效: %w", err)}
	}

	records := make([]models.Record, 0, len(items))
	var failures []error
	for i, item := range items {
		if ctx.Err() != nil {
			failures = append(failures, ctx.Err())
			break
		}
		rec, err := se.ExtractItem(item, baseURL)
		if err != nil {
			failures = append(failures, &models.ExtractionFailure{Index: start + i, Err: err})
			continue
		}
		records = append(records, rec)
	}

	return records, errors.Join(failures...)
}

// ExtractItem 从单个条目HTML构建记录
func (se *SelectorExtractor) ExtractItem(html string, baseURL *url.URL) (models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Record{}, fmt.Errorf("解析条目HTML失败: %w", err)
	}
	root := doc.Selection

	fields := make(map[string]string, len(se.config.Fields)+4)
	for _, f := range se.config.Fields {
		if v := fieldValue(root, f, baseURL); v != "" {
			fields[f.Name] = v
		}
	}
	if se.config.Preset == PresetRetail {
		retailFields(root, fields)
	}

	if len(fields) == 0 {
		return models.Record{}, errors.New("条目没有任何可识别字段")
	}

	return models.Record{
		Key:    CanonicalKey(fields[se.config.KeyField]),
		Fields: fields,
	}, nil
}

// fieldValue 按选择器顺序取第一个非空值
func fieldValue(root *goquery.Selection, f FieldSpec, baseURL *url.URL) string {
	for _, sel := range f.Selectors {
		node := root.Find(sel).First()
		if node.Length() == 0 {
			continue
		}

		var v string
		if f.Attr != "" {
			v, _ = node.Attr(f.Attr)
			v = strings.TrimSpace(v)
		} else {
			v = collapseText(node.Text())
		}

		if v != "" && f.re != nil {
			v = applyPattern(f, v)
		}
		if v != "" && f.Absolute {
			v = resolve(baseURL, v)
		}
		if v != "" {
			return v
		}
	}
	return ""
}

func applyPattern(f FieldSpec, v string) string {
	m := f.re.FindStringSubmatch(v)
	switch {
	case m == nil:
		return ""
	case len(m) > 1:
		return m[1]
	default:
		return m[0]
	}
}

func collapseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

// CanonicalKey 规范化身份键: 去掉片段,协议和主机小写
// 无法解析或不是绝对URL时返回去空白的原值
func CanonicalKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
