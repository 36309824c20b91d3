package shard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/RecoveryAshes/ListHarvest/internal/utils"
)

// Traverser 对单个位置执行遍历
type Traverser interface {
	Traverse(ctx context.Context, req models.TraversalRequest) (*models.TraversalResult, error)
}

// TraverserFactory 为每个分片创建全新的遍历器
type TraverserFactory func(shard models.Shard) Traverser

// Executor 分片执行器
// 分片之间互不共享句柄,单个分片失败不影响其他分片
type Executor struct {
	factory TraverserFactory

	// OnOutcome 每个分片完成时在收集goroutine中串行回调
	OnOutcome func(outcome models.ShardOutcome)
}

// NewExecutor 创建分片执行器
func NewExecutor(factory TraverserFactory) *Executor {
	return &Executor{factory: factory}
}

// Execute 以workers为并发上限运行所有分片
// 返回顺序为完成顺序,每个分片恰好一个结果
func (e *Executor) Execute(ctx context.Context, req models.TraversalRequest, shards []models.Shard, workers int) []models.ShardOutcome {
	if workers < 1 {
		workers = 1
	}

	results := make(chan models.ShardOutcome, len(shards))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, s := range shards {
		wg.Add(1)
		go func(s models.Shard) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- models.ShardOutcome{Shard: s, Err: fmt.Errorf("分片#%d未启动: %w", s.Index, ctx.Err())}
				return
			}
			defer func() { <-sem }()

			results <- e.runShard(ctx, req, s)
		}(s)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]models.ShardOutcome, 0, len(shards))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
		if e.OnOutcome != nil {
			e.OnOutcome(outcome)
		}
	}
	return outcomes
}

// runShard 执行单个分片,panic转换为失败结果
func (e *Executor) runShard(ctx context.Context, req models.TraversalRequest, s models.Shard) (outcome models.ShardOutcome) {
	start := time.Now()
	outcome.Shard = s

	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("捕获panic: 分片#%d, URL=%s, 错误=%v", s.Index, s.Location, r)
			outcome.Result = nil
			outcome.Err = fmt.Errorf("分片panic: %v", r)
		}
		outcome.Duration = time.Since(start)
	}()

	result, err := e.factory(s).Traverse(ctx, req.WithLocation(s.Location))
	if err != nil {
		outcome.Err = err
		return outcome
	}
	if result == nil {
		outcome.Err = fmt.Errorf("分片#%d没有返回结果", s.Index)
		return outcome
	}

	for i := range result.Records {
		result.Records[i].ShardIndex = s.Index
	}
	outcome.Result = result
	return outcome
}
