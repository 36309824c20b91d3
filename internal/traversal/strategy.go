package traversal

import (
	"context"
	"errors"

	"github.com/RecoveryAshes/ListHarvest/internal/crawlers"
	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/RecoveryAshes/ListHarvest/internal/utils"
)

// LoadStrategy 一种加载更多条目的方式
type LoadStrategy interface {
	Name() string
	// AttemptLoad 执行一次加载动作; applied=false 表示控件不存在或不可用
	AttemptLoad(ctx context.Context, h crawlers.Handle, req models.TraversalRequest, prev int) (applied bool, err error)
}

// DefaultStrategies 固定优先级: 加载更多 > 下一页 > 滚动
func DefaultStrategies(catalog models.ControlCatalog) []LoadStrategy {
	return []LoadStrategy{
		&loadMoreStrategy{controls: catalog.LoadMore},
		&nextPageStrategy{controls: catalog.NextPage},
		&scrollStrategy{},
	}
}

// invokeFirst 依次尝试控件,激活第一个可用的
// 控件报错时继续尝试后续控件,全部不可用时返回遇到的第一个错误
func invokeFirst(ctx context.Context, h crawlers.Handle, controls []models.ControlDescriptor) (bool, error) {
	var firstErr error
	for _, control := range controls {
		ok, err := h.Invoke(ctx, control)
		if err != nil {
			if errors.Is(err, models.ErrSourceUnavailable) || ctx.Err() != nil {
				return false, err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

type loadMoreStrategy struct {
	controls []models.ControlDescriptor
}

func (s *loadMoreStrategy) Name() string { return "load-more" }

func (s *loadMoreStrategy) AttemptLoad(ctx context.Context, h crawlers.Handle, req models.TraversalRequest, prev int) (bool, error) {
	return invokeFirst(ctx, h, s.controls)
}

type nextPageStrategy struct {
	controls []models.ControlDescriptor
}

func (s *nextPageStrategy) Name() string { return "next-page" }

// AttemptLoad 点击下一页后等待页面空闲
func (s *nextPageStrategy) AttemptLoad(ctx context.Context, h crawlers.Handle, req models.TraversalRequest, prev int) (bool, error) {
	ok, err := invokeFirst(ctx, h, s.controls)
	if !ok {
		return false, err
	}
	if err := h.WaitSettled(ctx, req.SettleTimeout); err != nil {
		utils.Debugf("翻页后等待页面稳定失败,继续观测条目数: %v", err)
	}
	return true, nil
}

// scrollStrategy 逐步滚动到底部,最多ScrollSteps步
// 首步视口未移动视为策略不可用
type scrollStrategy struct{}

func (s *scrollStrategy) Name() string { return "scroll" }

func (s *scrollStrategy) AttemptLoad(ctx context.Context, h crawlers.Handle, req models.TraversalRequest, prev int) (bool, error) {
	moved, err := h.ScrollToBottom(ctx)
	if err != nil {
		return false, err
	}
	if !moved {
		return false, nil
	}

	poll := req.PollInterval
	if req.ScrollPause < poll {
		poll = req.ScrollPause
	}
	watcher := NewConvergenceWatcher(h)
	current := prev

	for step := 1; step < req.ScrollSteps; step++ {
		grew, err := watcher.WaitForIncrease(ctx, current, req.ScrollPause, poll)
		if err != nil {
			return true, err
		}
		if !grew {
			break
		}
		if count, err := h.CurrentCount(ctx); err == nil {
			current = count
		}
		if moved, err := h.ScrollToBottom(ctx); err != nil || !moved {
			break
		}
	}
	return true, nil
}
