package shard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

// DefaultPageParam 默认的页码参数名
const DefaultPageParam = "page"

// MinShards 启用分片时的最小分片数
const MinShards = 2

// Planner 把一个遍历请求派生为若干独立分片
type Planner struct {
	param  string
	values []string // 非空时按显式取值分区,否则按页码1..N
}

// NewPlanner 创建分片规划器
func NewPlanner(param string, values []string) *Planner {
	if param == "" {
		param = DefaultPageParam
	}
	return &Planner{param: param, values: values}
}

// Plan 生成分片; 页码模式下count不足2时提升为2
// 除被覆盖的参数外,位置中的其他参数保持原样
func (p *Planner) Plan(req models.TraversalRequest, count int) ([]models.Shard, error) {
	base, err := models.ParseLocation(req.Location)
	if err != nil {
		return nil, fmt.Errorf("解析分片基准地址失败: %w", err)
	}

	values := p.values
	if len(values) == 0 {
		if count < MinShards {
			count = MinShards
		}
		values = make([]string, count)
		for i := range values {
			values[i] = strconv.Itoa(i + 1)
		}
	} else if len(values) < MinShards {
		return nil, fmt.Errorf("参数 %s 的分区取值至少需要%d个,当前 %d 个", p.param, MinShards, len(values))
	}

	shards := make([]models.Shard, 0, len(values))
	for i, v := range values {
		u := *base
		u.RawQuery = setQueryParam(base.RawQuery, p.param, v)
		shards = append(shards, models.Shard{Index: i + 1, Location: u.String()})
	}
	return shards, nil
}

// setQueryParam 覆盖或追加一个查询参数,保留其余参数的顺序和编码
func setQueryParam(rawQuery, key, value string) string {
	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if rawQuery == "" {
		return pair
	}

	parts := strings.Split(rawQuery, "&")
	out := make([]string, 0, len(parts)+1)
	replaced := false
	for _, part := range parts {
		name := part
		if i := strings.IndexByte(part, '='); i >= 0 {
			name = part[:i]
		}
		if unescaped, err := url.QueryUnescape(name); err == nil && unescaped == key {
			if !replaced {
				out = append(out, pair)
				replaced = true
			}
			continue
		}
		out = append(out, part)
	}
	if !replaced {
		out = append(out, pair)
	}
	return strings.Join(out, "&")
}
