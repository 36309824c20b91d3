package models

import (
	"fmt"
	"time"
)

// HarvestMode 运行模式
type HarvestMode string

const (
	ModeSingle  HarvestMode = "single"  // 单目标顺序遍历
	ModeSharded HarvestMode = "sharded" // 单目标分片并行
	ModeBatch   HarvestMode = "batch"   // 多目标,每个URL独立输出
)

// ConvergenceMode 收敛判定方式
type ConvergenceMode string

const (
	// ConvergeByCount 条目数量严格增加视为有进展(追加型页面)
	ConvergeByCount ConvergenceMode = "count"
	// ConvergeByHash 条目内容指纹变化视为有进展(替换型页面)
	ConvergeByHash ConvergenceMode = "content_hash"
)

// 遍历默认值
const (
	DefaultMaxAttempts       = 20
	DefaultAttemptTimeout    = 15 * time.Second
	DefaultPollInterval      = 300 * time.Millisecond
	DefaultNavigationTimeout = 30 * time.Second
	DefaultReadyTimeout      = 10 * time.Second
	DefaultSettleTimeout     = 10 * time.Second
	DefaultScrollSteps       = 10
	DefaultScrollPause       = 700 * time.Millisecond
)

// TraversalRequest 一次遍历的目标与边界配置
// 遍历开始后只读
type TraversalRequest struct {
	Location          string          `json:"location"`
	MaxAttempts       int             `json:"max_attempts"`
	AttemptTimeout    time.Duration   `json:"attempt_timeout"`
	PollInterval      time.Duration   `json:"poll_interval"`
	NavigationTimeout time.Duration   `json:"navigation_timeout"`
	ReadyTimeout      time.Duration   `json:"ready_timeout"`
	SettleTimeout     time.Duration   `json:"settle_timeout"` // 翻页后等待网络空闲
	ScrollSteps       int             `json:"scroll_steps"`
	ScrollPause       time.Duration   `json:"scroll_pause"`
	SinglePassOnly    bool            `json:"single_pass_only"`
	Convergence       ConvergenceMode `json:"convergence"`
}

// DefaultTraversalRequest 返回带默认边界的请求
func DefaultTraversalRequest(location string) TraversalRequest {
	return TraversalRequest{
		Location:          location,
		MaxAttempts:       DefaultMaxAttempts,
		AttemptTimeout:    DefaultAttemptTimeout,
		PollInterval:      DefaultPollInterval,
		NavigationTimeout: DefaultNavigationTimeout,
		ReadyTimeout:      DefaultReadyTimeout,
		SettleTimeout:     DefaultSettleTimeout,
		ScrollSteps:       DefaultScrollSteps,
		ScrollPause:       DefaultScrollPause,
		Convergence:       ConvergeByCount,
	}
}

// WithLocation 复制请求并替换目标地址(分片派生用)
func (r TraversalRequest) WithLocation(location string) TraversalRequest {
	r.Location = location
	return r
}

// Validate 验证请求
func (r *TraversalRequest) Validate() error {
	if err := ValidateURL(r.Location); err != nil {
		return err
	}
	if !r.SinglePassOnly && (r.MaxAttempts < 1 || r.MaxAttempts > 1000) {
		return fmt.Errorf("最大尝试次数必须在1-1000之间,当前值: %d", r.MaxAttempts)
	}
	if r.AttemptTimeout <= 0 {
		return fmt.Errorf("单次等待超时必须大于0")
	}
	if r.PollInterval <= 0 || r.PollInterval > r.AttemptTimeout {
		return fmt.Errorf("轮询间隔必须大于0且不超过单次等待超时")
	}
	if r.ScrollSteps < 1 {
		return fmt.Errorf("滚动步数至少为1")
	}
	if r.ScrollPause <= 0 {
		return fmt.Errorf("滚动间隔必须大于0,当前值: %v", r.ScrollPause)
	}
	switch r.Convergence {
	case ConvergeByCount, ConvergeByHash:
	default:
		return fmt.Errorf("无效的收敛模式: %s (有效值: count, content_hash)", r.Convergence)
	}
	return nil
}
