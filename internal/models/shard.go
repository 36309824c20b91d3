package models

import "time"

// Shard 从请求派生的独立位置变体
type Shard struct {
	Index    int    `json:"index"`
	Location string `json:"location"`
}

// ShardOutcome 单个分片的结果或失败标记
type ShardOutcome struct {
	Shard    Shard
	Result   *TraversalResult
	Err      error
	Duration time.Duration
}

// Success 分片是否成功完成
func (o ShardOutcome) Success() bool {
	return o.Err == nil && o.Result != nil
}

// ItemCount 分片产出的记录数
func (o ShardOutcome) ItemCount() int {
	if o.Result == nil {
		return 0
	}
	return len(o.Result.Records)
}

// Summary 生成报告用的摘要
func (o ShardOutcome) Summary() OutcomeSummary {
	s := OutcomeSummary{
		Index:    o.Shard.Index,
		Location: o.Shard.Location,
		Items:    o.ItemCount(),
		Duration: o.Duration.Seconds(),
	}
	if o.Result != nil {
		s.Attempts = o.Result.Attempts
		s.Reason = o.Result.Reason
		s.SoftFailures = len(o.Result.SoftFailures)
	}
	if o.Err != nil {
		s.Error = o.Err.Error()
	}
	return s
}

// OutcomeSummary 分片结果摘要
type OutcomeSummary struct {
	Index        int               `json:"index"`
	Location     string            `json:"location"`
	Items        int               `json:"items"`
	Attempts     int               `json:"attempts"`
	Reason       TerminationReason `json:"reason,omitempty"`
	SoftFailures int               `json:"soft_failures"`
	Error        string            `json:"error,omitempty"`
	Duration     float64           `json:"duration"` // 秒
}

// MergedCollection 所有分片去重后的并集
// 不变量: 任意两条记录的身份键不同
type MergedCollection struct {
	Records        []Record         `json:"records"`
	Unidentifiable int              `json:"unidentifiable"`
	Duplicates     int              `json:"duplicates"`
	Outcomes       []OutcomeSummary `json:"outcomes"`
}

// Len 记录数
func (m *MergedCollection) Len() int {
	return len(m.Records)
}

// Keys 按保留顺序返回身份键
func (m *MergedCollection) Keys() []string {
	keys := make([]string, 0, len(m.Records))
	for _, r := range m.Records {
		keys = append(keys, r.Key)
	}
	return keys
}

// FailedShards 失败分片数
func (m *MergedCollection) FailedShards() int {
	n := 0
	for _, o := range m.Outcomes {
		if o.Error != "" {
			n++
		}
	}
	return n
}
