package traversal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/crawlers"
	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/RecoveryAshes/ListHarvest/internal/utils"
)

// Extractor 把新物化的条目转换为记录
type Extractor interface {
	Extract(ctx context.Context, h crawlers.Handle, start int) ([]models.Record, error)
}

// consentPause 关闭同意弹窗后的等待
const consentPause = 500 * time.Millisecond

type state int

const (
	stateInitialPass state = iota
	stateStrategyAttempt
	stateConvergedPass
	stateStopped
)

// Controller 遍历控制器
// 每次Traverse独占一个内容源句柄,尝试循环严格串行
type Controller struct {
	source     crawlers.ContentSource
	extractor  Extractor
	strategies []LoadStrategy
	consent    []models.ControlDescriptor

	// OnAttempt 每完成一轮收敛抽取后回调
	OnAttempt func(attempt, maxAttempts int)
}

// NewController 创建控制器
func NewController(source crawlers.ContentSource, extractor Extractor, catalog models.ControlCatalog) *Controller {
	return &Controller{
		source:     source,
		extractor:  extractor,
		strategies: DefaultStrategies(catalog),
		consent:    catalog.Consent,
	}
}

// run 单次遍历的可变状态
type run struct {
	req      models.TraversalRequest
	handle   crawlers.Handle
	watcher  *ConvergenceWatcher
	result   *models.TraversalResult
	seen     map[string]bool
	byHash   bool
	prev     int
	prevHash string
}

// Traverse 对单个位置执行完整遍历
// 只有导航失败会返回错误,其余失败都作为软失败记录在结果中
func (c *Controller) Traverse(ctx context.Context, req models.TraversalRequest) (*models.TraversalResult, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("无效的遍历请求: %w", err)
	}

	h, err := c.source.Navigate(ctx, req.Location, req.NavigationTimeout)
	if err != nil {
		var navErr *models.NavigationError
		if !errors.As(err, &navErr) {
			err = &models.NavigationError{Location: req.Location, Err: err}
		}
		return nil, err
	}
	if h == nil {
		return nil, &models.NavigationError{Location: req.Location, Err: models.ErrSourceUnavailable}
	}
	defer func() {
		if err := h.Close(); err != nil {
			utils.Debugf("关闭句柄失败 [%s]: %v", req.Location, err)
		}
	}()

	r := &run{
		req:     req,
		handle:  h,
		watcher: NewConvergenceWatcher(h),
		result:  &models.TraversalResult{Location: req.Location},
		seen:    make(map[string]bool),
	}
	if req.Convergence == models.ConvergeByHash {
		if _, ok := h.(crawlers.Fingerprinter); ok {
			r.byHash = true
		} else {
			utils.Warnf("内容源不支持内容指纹,回退到数量收敛: %s", req.Location)
		}
	}

	c.prepare(ctx, r)

	st := stateInitialPass
	for st != stateStopped {
		if ctx.Err() != nil {
			r.result.Reason = models.ReasonCancelled
			break
		}

		switch st {
		case stateInitialPass:
			if c.extractPass(ctx, r, 0) {
				st = stateStopped
				break
			}
			if req.SinglePassOnly {
				r.result.Reason = models.ReasonSinglePass
				st = stateStopped
				break
			}
			st = stateStrategyAttempt

		case stateStrategyAttempt:
			st = c.attempt(ctx, r)

		case stateConvergedPass:
			start := r.prev
			if r.byHash {
				start = 0
			}
			if c.extractPass(ctx, r, start) {
				st = stateStopped
				break
			}
			r.result.Attempts++
			if c.OnAttempt != nil {
				c.OnAttempt(r.result.Attempts, req.MaxAttempts)
			}
			if r.result.Attempts >= req.MaxAttempts {
				r.result.Reason = models.ReasonBudgetExhausted
				st = stateStopped
				break
			}
			st = stateStrategyAttempt
		}
	}

	if count, err := h.CurrentCount(ctx); err == nil {
		r.result.FinalCount = count
	}
	r.result.Duration = time.Since(startTime)

	utils.Debugf("遍历结束 [%s]: 记录=%d, 轮次=%d, 动作=%d, 原因=%s",
		req.Location, len(r.result.Records), r.result.Attempts, r.result.Actions, r.result.Reason)
	return r.result, nil
}

// prepare 等待首个条目并关闭同意弹窗,失败只记录不中断
func (c *Controller) prepare(ctx context.Context, r *run) {
	if err := r.handle.WaitReady(ctx, r.req.ReadyTimeout); err != nil {
		utils.Warnf("等待条目出现失败 [%s]: %v", r.req.Location, err)
		r.result.AddSoftFailure(0, "prepare", models.FailureActionFailed, err)
	}

	for _, control := range c.consent {
		ok, err := r.handle.Invoke(ctx, control)
		if err != nil {
			utils.Debugf("关闭同意弹窗失败 (%s): %v", control.Name, err)
			continue
		}
		if ok {
			utils.Debugf("已关闭同意弹窗: %s", control.Name)
			select {
			case <-ctx.Done():
			case <-time.After(consentPause):
			}
			return
		}
	}
}

// attempt 执行一次STRATEGY_ATTEMPT,返回下一个状态
func (c *Controller) attempt(ctx context.Context, r *run) state {
	attemptNo := r.result.Attempts + 1

	prev, err := r.handle.CurrentCount(ctx)
	if err != nil {
		if c.stopOnFatal(ctx, r, err) {
			return stateStopped
		}
		// 保留上一次已知的数量
		prev = r.prev
	}
	r.prev = prev

	if r.byHash {
		if hash, err := r.handle.(crawlers.Fingerprinter).ContentHash(ctx); err == nil {
			r.prevHash = hash
		} else if c.stopOnFatal(ctx, r, err) {
			return stateStopped
		}
	}

	applied := ""
	for _, strategy := range c.strategies {
		ok, err := strategy.AttemptLoad(ctx, r.handle, r.req, prev)
		if err != nil {
			if c.stopOnFatal(ctx, r, err) {
				return stateStopped
			}
			utils.Debugf("策略 %s 执行失败,尝试下一个: %v", strategy.Name(), err)
			r.result.AddSoftFailure(attemptNo, strategy.Name(), models.FailureActionFailed, err)
			if !ok {
				continue
			}
		}
		if ok {
			applied = strategy.Name()
			break
		}
	}

	if applied == "" {
		r.result.AddSoftFailure(attemptNo, "strategy", models.FailureActionUnavailable, models.ErrActionUnavailable)
		r.result.Reason = models.ReasonNoStrategy
		return stateStopped
	}
	r.result.Actions++
	utils.Debugf("第%d轮: 已执行 %s (当前条目 %d)", attemptNo, applied, prev)

	var progressed bool
	if r.byHash {
		progressed, err = r.watcher.WaitForChange(ctx, r.prevHash, r.req.AttemptTimeout, r.req.PollInterval)
	} else {
		progressed, err = r.watcher.WaitForIncrease(ctx, prev, r.req.AttemptTimeout, r.req.PollInterval)
	}
	if err != nil && c.stopOnFatal(ctx, r, err) {
		return stateStopped
	}
	if !progressed {
		r.result.AddSoftFailure(attemptNo, applied, models.FailureNoProgress, models.ErrNoProgress)
		r.result.Reason = models.ReasonNoProgress
		return stateStopped
	}
	return stateConvergedPass
}

// extractPass 抽取并去重追加,返回是否需要终止
func (c *Controller) extractPass(ctx context.Context, r *run, start int) bool {
	records, err := c.extractor.Extract(ctx, r.handle, start)
	r.result.Passes++

	for _, rec := range records {
		if rec.Identifiable() {
			if r.seen[rec.Key] {
				continue
			}
			r.seen[rec.Key] = true
		}
		r.result.Records = append(r.result.Records, rec)
	}

	if err != nil {
		if c.stopOnFatal(ctx, r, err) {
			return true
		}
		for _, e := range flattenErrors(err) {
			r.result.AddSoftFailure(r.result.Attempts, "extract", models.FailureExtraction, e)
		}
		utils.Debugf("抽取出现 %d 个软失败 [%s]", len(flattenErrors(err)), r.req.Location)
	}
	return false
}

// stopOnFatal 内容源丢失或ctx取消时设置终止原因
func (c *Controller) stopOnFatal(ctx context.Context, r *run, err error) bool {
	switch {
	case errors.Is(err, models.ErrSourceUnavailable):
		utils.Warnf("内容源已丢失 [%s]: %v", r.req.Location, err)
		r.result.Reason = models.ReasonSourceLost
		return true
	case ctx.Err() != nil:
		r.result.Reason = models.ReasonCancelled
		return true
	}
	return false
}

// flattenErrors 展开errors.Join的结果
func flattenErrors(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
