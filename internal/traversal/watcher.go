package traversal

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/crawlers"
	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/RecoveryAshes/ListHarvest/internal/utils"
)

// ConvergenceWatcher 观测动作之后物化条目数是否增加
// 纯观测: 不重试触发动作,没有副作用
type ConvergenceWatcher struct {
	handle crawlers.Handle
}

// NewConvergenceWatcher 创建观测器
func NewConvergenceWatcher(handle crawlers.Handle) *ConvergenceWatcher {
	return &ConvergenceWatcher{handle: handle}
}

// WaitForIncrease 按poll间隔轮询,直到数量严格大于prev或超时
// 超时返回false; 仅在内容源不可用或ctx取消时返回错误
func (w *ConvergenceWatcher) WaitForIncrease(ctx context.Context, prev int, timeout, poll time.Duration) (bool, error) {
	return w.poll(ctx, timeout, poll, func() (bool, error) {
		count, err := w.handle.CurrentCount(ctx)
		if err != nil {
			return false, err
		}
		return count > prev, nil
	})
}

// WaitForChange 替换型页面: 轮询内容指纹直到与prevHash不同
func (w *ConvergenceWatcher) WaitForChange(ctx context.Context, prevHash string, timeout, poll time.Duration) (bool, error) {
	fp, ok := w.handle.(crawlers.Fingerprinter)
	if !ok {
		return false, errors.New("内容源不支持内容指纹")
	}
	return w.poll(ctx, timeout, poll, func() (bool, error) {
		hash, err := fp.ContentHash(ctx)
		if err != nil {
			return false, err
		}
		return hash != prevHash, nil
	})
}

// minPoll 轮询间隔下限,time.NewTicker不接受非正值
const minPoll = 10 * time.Millisecond

func (w *ConvergenceWatcher) poll(ctx context.Context, timeout, poll time.Duration, check func() (bool, error)) (bool, error) {
	if poll <= 0 {
		poll = minPoll
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		done, err := check()
		switch {
		case err == nil && done:
			return true, nil
		case errors.Is(err, models.ErrSourceUnavailable):
			return false, err
		case err != nil:
			// 页面跳转期间执行上下文被销毁等瞬时错误,按本轮无增长处理
			utils.Debugf("轮询条目数失败,忽略本轮: %v", err)
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}
