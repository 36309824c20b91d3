package core

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/crawlers"
	"github.com/RecoveryAshes/ListHarvest/internal/extract"
	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/RecoveryAshes/ListHarvest/internal/output"
	"github.com/RecoveryAshes/ListHarvest/internal/shard"
	"github.com/RecoveryAshes/ListHarvest/internal/traversal"
	"github.com/RecoveryAshes/ListHarvest/internal/utils"
)

// Harvester 顶层编排: 单目标、单目标分片、多目标批量
type Harvester struct {
	config    *Config
	source    crawlers.ContentSource
	extractor *extract.SelectorExtractor
	writer    output.Writer
	reporter  *utils.Reporter
	monitor   *crawlers.ResourceMonitor

	// ShowProgress 是否显示进度条
	ShowProgress bool
}

// NewHarvester 按配置创建内容源并组装收割器
func NewHarvester(config *Config, headerProvider models.HeaderProvider) (*Harvester, error) {
	extractor, err := extract.NewSelectorExtractor(config.Extract)
	if err != nil {
		return nil, err
	}

	var source crawlers.ContentSource
	switch config.Browser.Mode {
	case SourceStatic:
		source = crawlers.NewStaticSource(crawlers.StaticConfig{
			ItemSelector:     extractor.ItemSelector(),
			IgnoreCertErrors: config.Browser.IgnoreCertErrors,
			Delay:            config.Browser.Delay,
		}, headerProvider)
	default:
		source = crawlers.NewDynamicSource(crawlers.DynamicConfig{
			Headless:         config.Browser.Headless,
			Stealth:          config.Browser.Stealth,
			BinPath:          config.Browser.BinPath,
			IgnoreCertErrors: config.Browser.IgnoreCertErrors,
			ItemSelector:     extractor.ItemSelector(),
			ActionTimeout:    config.Traversal.AttemptTimeout,
		}, headerProvider)
	}

	return NewHarvesterWithSource(config, source, extractor)
}

// NewHarvesterWithSource 使用给定内容源组装收割器
func NewHarvesterWithSource(config *Config, source crawlers.ContentSource, extractor *extract.SelectorExtractor) (*Harvester, error) {
	writer, err := output.WriterFor(config.Output.Format)
	if err != nil {
		return nil, err
	}
	return &Harvester{
		config:       config,
		source:       source,
		extractor:    extractor,
		writer:       writer,
		reporter:     utils.NewReporter(config.Output.Dir),
		monitor:      crawlers.NewResourceMonitor(config.ResourceMonitorConfig()),
		ShowProgress: true,
	}, nil
}

// Close 释放内容源(关闭浏览器)
func (h *Harvester) Close() error {
	return h.source.Close()
}

// newController 每个目标或分片使用新的控制器
func (h *Harvester) newController() *traversal.Controller {
	return traversal.NewController(h.source, h.extractor, h.config.Controls)
}

// HarvestSingle 单目标遍历
// singlePass为true时只做首次抽取; outputFile为空时按目标生成文件名
func (h *Harvester) HarvestSingle(ctx context.Context, target string, singlePass bool, outputFile string) (*models.HarvestReport, error) {
	req := h.config.TraversalRequest(target)
	req.SinglePassOnly = singlePass

	utils.Infof("🚀 开始收集: %s", target)
	report := models.NewHarvestReport(target, models.ModeSingle, req)

	controller := h.newController()
	if h.ShowProgress && !singlePass {
		bar := utils.NewProgressBar(req.MaxAttempts, "加载页面")
		controller.OnAttempt = func(attempt, maxAttempts int) {
			_ = bar.Set(attempt)
		}
		defer func() { _ = bar.Finish() }()
	}

	start := time.Now()
	result, err := controller.Traverse(ctx, req)
	outcome := models.ShardOutcome{
		Shard:    models.Shard{Index: 1, Location: target},
		Result:   result,
		Err:      err,
		Duration: time.Since(start),
	}

	merged := shard.NewMerger().Merge([]models.ShardOutcome{outcome})
	if err != nil {
		report.Finish(merged)
		h.saveReport(report)
		return report, fmt.Errorf("遍历失败: %w", err)
	}

	utils.Infof("✅ 完成! 找到 %d 个商品, 用时 %.2f 秒 (终止原因: %s)",
		merged.Len(), time.Since(start).Seconds(), result.Reason)
	if n := len(result.SoftFailures); n > 0 {
		utils.Debugf("遍历期间吸收了 %d 个软失败", n)
	}

	if outputFile == "" {
		outputFile, err = utils.OutputPath(h.config.Output.Dir, target, "", output.Extension(h.config.Output.Format))
		if err != nil {
			return report, err
		}
	}
	return report, h.finish(report, merged, outputFile)
}

// HarvestSharded 单目标分片: 规划 → 并发执行 → 合并
func (h *Harvester) HarvestSharded(ctx context.Context, target string, outputFile string) (*models.HarvestReport, error) {
	req := h.config.TraversalRequest(target)
	req.SinglePassOnly = h.config.Shard.SinglePass

	planner := shard.NewPlanner(h.config.Shard.Param, h.config.Shard.Values)
	shards, err := planner.Plan(req, h.config.Shard.MaxPages)
	if err != nil {
		return nil, fmt.Errorf("规划分片失败: %w", err)
	}

	workers := h.monitor.ClampWorkers(h.config.Shard.Workers)
	utils.Infof("🚀 单目标分片并行: %d 个分片, %d 个并发", len(shards), workers)

	report := models.NewHarvestReport(target, models.ModeSharded, req)
	outcomes := h.executeShards(ctx, req, shards, workers, func(o models.ShardOutcome) {
		if o.Success() {
			utils.Infof("[OK] 分片 %s → %d 个商品", o.Shard.Location, o.ItemCount())
		} else {
			utils.Warnf("[错误] 分片 %s → %v", o.Shard.Location, o.Err)
		}
	})

	merged := shard.NewMerger().Merge(outcomes)
	utils.Infof("✅ 分片合并完成: %d 个唯一商品 (重复 %d, 无身份键 %d, 失败分片 %d)",
		merged.Len(), merged.Duplicates, merged.Unidentifiable, merged.FailedShards())

	if outputFile == "" {
		outputFile, err = utils.OutputPath(h.config.Output.Dir, target, "merged", output.Extension(h.config.Output.Format))
		if err != nil {
			return report, err
		}
	}
	return report, h.finish(report, merged, outputFile)
}

// executeShards 运行分片执行器并驱动进度条
func (h *Harvester) executeShards(ctx context.Context, req models.TraversalRequest, shards []models.Shard, workers int, onOutcome func(models.ShardOutcome)) []models.ShardOutcome {
	executor := shard.NewExecutor(func(models.Shard) shard.Traverser {
		return h.newController()
	})

	var advance func()
	if h.ShowProgress {
		bar := utils.NewProgressBar(len(shards), "处理分片")
		advance = func() { _ = bar.Add(1) }
		defer func() { _ = bar.Finish() }()
	}

	executor.OnOutcome = func(o models.ShardOutcome) {
		if advance != nil {
			advance()
		}
		if onOutcome != nil {
			onOutcome(o)
		}
	}
	return executor.Execute(ctx, req, shards, workers)
}

// finish 写出结果与报告; 结果为空时不写文件
func (h *Harvester) finish(report *models.HarvestReport, merged *models.MergedCollection, outputFile string) error {
	report.Finish(merged)

	if merged.Len() == 0 {
		utils.Warnf("⚠️ 未找到任何商品 - 请检查URL或稍后重试")
		h.saveReport(report)
		return nil
	}

	if err := h.writer.Write(outputFile, h.extractor.Columns(), merged.Records); err != nil {
		return fmt.Errorf("保存结果失败: %w", err)
	}
	report.OutputFile = outputFile

	h.saveReport(report)
	utils.PrintSummary(merged, outputFile)
	return nil
}

// saveReport 报告写入失败只记录警告
func (h *Harvester) saveReport(report *models.HarvestReport) {
	if path, err := h.reporter.SaveReport(report); err != nil {
		utils.Warnf("保存报告失败: %v", err)
	} else {
		utils.Infof("📄 运行报告: %s", path)
	}
}
