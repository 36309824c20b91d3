package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HarvestReport 运行报告
type HarvestReport struct {
	RunID  string      `json:"run_id"`
	Target string      `json:"target"`
	Mode   HarvestMode `json:"mode"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	Totals   ReportTotals     `json:"totals"`
	Outcomes []OutcomeSummary `json:"outcomes"`

	OutputFile string `json:"output_file,omitempty"`

	// 配置快照
	Request TraversalRequest `json:"request"`
}

// ReportTotals 汇总统计
type ReportTotals struct {
	Records        int `json:"records"`
	Unidentifiable int `json:"unidentifiable"`
	Duplicates     int `json:"duplicates"`
	Shards         int `json:"shards"`
	FailedShards   int `json:"failed_shards"`
}

// NewRunID 生成运行ID
func NewRunID() string {
	return uuid.New().String()
}

// NewHarvestReport 创建报告
func NewHarvestReport(target string, mode HarvestMode, req TraversalRequest) *HarvestReport {
	return &HarvestReport{
		RunID:     NewRunID(),
		Target:    target,
		Mode:      mode,
		StartTime: time.Now(),
		Request:   req,
	}
}

// Finish 以合并结果填充报告
func (r *HarvestReport) Finish(merged *MergedCollection) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime).Seconds()
	if merged == nil {
		return
	}
	r.Outcomes = merged.Outcomes
	r.Totals = ReportTotals{
		Records:        merged.Len(),
		Unidentifiable: merged.Unidentifiable,
		Duplicates:     merged.Duplicates,
		Shards:         len(merged.Outcomes),
		FailedShards:   merged.FailedShards(),
	}
}

// ToJSON 序列化为JSON
func (r *HarvestReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *HarvestReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
