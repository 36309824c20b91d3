package models

import (
	"strings"
	"time"
)

// TerminationReason 遍历终止原因
type TerminationReason string

const (
	ReasonNoStrategy      TerminationReason = "NO_STRATEGY_AVAILABLE"
	ReasonNoProgress      TerminationReason = "NO_PROGRESS"
	ReasonBudgetExhausted TerminationReason = "ATTEMPT_BUDGET_EXHAUSTED"
	ReasonSinglePass      TerminationReason = "SINGLE_PASS_REQUESTED"
	ReasonSourceLost      TerminationReason = "SOURCE_LOST"
	ReasonCancelled       TerminationReason = "CANCELLED"
)

// FailureKind 软失败类别
type FailureKind string

const (
	FailureActionUnavailable FailureKind = "action_unavailable"
	FailureActionFailed      FailureKind = "action_failed"
	FailureNoProgress        FailureKind = "no_progress"
	FailureExtraction        FailureKind = "extraction_failure"
)

// SoftFailure 被吸收的非致命失败,保留在结果中以便观测
type SoftFailure struct {
	Attempt int         `json:"attempt"`
	Stage   string      `json:"stage"` // 策略名 / extract / prepare
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Record 一条结构化商品记录
type Record struct {
	Key        string            `json:"key"` // 身份键: 规范化的商品绝对URL
	Fields     map[string]string `json:"fields"`
	ShardIndex int               `json:"shard_index"`
}

// Identifiable 是否具有可用于合并的身份键
func (r Record) Identifiable() bool {
	return strings.TrimSpace(r.Key) != ""
}

// Get 读取字段,不存在时返回空串
func (r Record) Get(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// Clone 深拷贝
func (r Record) Clone() Record {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	r.Fields = fields
	return r
}

// TraversalResult 单次控制器运行的产出
type TraversalResult struct {
	Location     string            `json:"location"`
	Records      []Record          `json:"records"`
	Attempts     int               `json:"attempts"` // 已消耗的收敛轮次
	Passes       int               `json:"passes"`   // 抽取次数(含首次)
	Actions      int               `json:"actions"`  // 已执行的加载动作
	FinalCount   int               `json:"final_count"`
	Reason       TerminationReason `json:"reason"`
	SoftFailures []SoftFailure     `json:"soft_failures,omitempty"`
	Duration     time.Duration     `json:"duration"`
}

// AddSoftFailure 记录一次软失败
func (r *TraversalResult) AddSoftFailure(attempt int, stage string, kind FailureKind, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.SoftFailures = append(r.SoftFailures, SoftFailure{
		Attempt: attempt,
		Stage:   stage,
		Kind:    kind,
		Message: msg,
	})
}

// CountFailures 按类别统计软失败
func (r *TraversalResult) CountFailures(kind FailureKind) int {
	n := 0
	for _, f := range r.SoftFailures {
		if f.Kind == kind {
			n++
		}
	}
	return n
}
