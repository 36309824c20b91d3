package core

import (
	"context"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/RecoveryAshes/ListHarvest/internal/output"
	"github.com/RecoveryAshes/ListHarvest/internal/shard"
	"github.com/RecoveryAshes/ListHarvest/internal/utils"
)

// BatchResult 单个目标的批量结果
type BatchResult struct {
	URL        string
	Success    bool
	Error      error
	Count      int
	OutputFile string
	Duration   float64
}

// BatchSummary 批量收集摘要
type BatchSummary struct {
	TotalURLs     int
	SuccessCount  int
	FailCount     int
	TotalRecords  int
	TotalDuration float64
	Results       []BatchResult
}

// HarvestBatch 多目标并行收集,每个目标完整遍历并单独输出
// 目标之间不合并
func (h *Harvester) HarvestBatch(ctx context.Context, urls []string) *BatchSummary {
	workers := h.monitor.ClampWorkers(h.config.Shard.Workers)
	utils.Infof("🚀 开始批量收集: %d个URL, %d 个并发", len(urls), workers)

	targets := make([]models.Shard, len(urls))
	for i, u := range urls {
		targets[i] = models.Shard{Index: i + 1, Location: u}
	}

	summary := &BatchSummary{
		TotalURLs: len(urls),
		Results:   make([]BatchResult, 0, len(urls)),
	}
	startTime := time.Now()

	// 回调在收集goroutine中串行执行,写文件无需加锁
	h.executeShards(ctx, h.config.TraversalRequest(""), targets, workers, func(o models.ShardOutcome) {
		result := h.storeTarget(o)
		summary.Results = append(summary.Results, result)
		if result.Success {
			summary.SuccessCount++
			summary.TotalRecords += result.Count
			utils.Infof("[OK] %s → %d 个商品, 文件: %s", result.URL, result.Count, result.OutputFile)
		} else {
			summary.FailCount++
			utils.Errorf("[错误] %s → %v", result.URL, result.Error)
		}
	})

	summary.TotalDuration = time.Since(startTime).Seconds()
	h.printSummary(summary)
	return summary
}

// storeTarget 合并并写出单个目标的结果
func (h *Harvester) storeTarget(o models.ShardOutcome) BatchResult {
	result := BatchResult{URL: o.Shard.Location, Duration: o.Duration.Seconds()}

	report := models.NewHarvestReport(o.Shard.Location, models.ModeBatch, h.config.TraversalRequest(o.Shard.Location))
	merged := shard.NewMerger().Merge([]models.ShardOutcome{o})
	if !o.Success() {
		result.Error = o.Err
		report.Finish(merged)
		h.saveReport(report)
		return result
	}

	outputFile, err := utils.OutputPath(h.config.Output.Dir, o.Shard.Location, "", output.Extension(h.config.Output.Format))
	if err != nil {
		result.Error = err
		return result
	}
	if err := h.finish(report, merged, outputFile); err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	result.Count = merged.Len()
	result.OutputFile = report.OutputFile
	return result
}

// printSummary 打印批量收集摘要
func (h *Harvester) printSummary(summary *BatchSummary) {
	utils.Info("==================================================")
	utils.Info("📊 批量收集摘要")
	utils.Info("==================================================")
	utils.Infof("总URL数: %d", summary.TotalURLs)
	utils.Infof("✅ 成功: %d", summary.SuccessCount)
	utils.Infof("❌ 失败: %d", summary.FailCount)
	utils.Infof("📦 商品总数: %d", summary.TotalRecords)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.TotalDuration)
	utils.Info("==================================================")

	if summary.FailCount > 0 {
		utils.Warn("失败的URL:")
		for _, result := range summary.Results {
			if !result.Success {
				utils.Warnf("  - %s: %v", result.URL, result.Error)
			}
		}
	}
}
