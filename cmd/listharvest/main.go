package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/ListHarvest/internal/core"
	"github.com/RecoveryAshes/ListHarvest/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string
	validateConfig bool

	// 输出参数
	format     string
	outputFile string
	outputDir  string
	urlFile    string

	// 遍历参数
	noHeadless  bool
	stealth     bool
	mode        string
	maxAttempts int
	singlePage  bool

	// 分片参数
	parallelSingle bool
	maxPages       int
	shardParam     string
	workers        int
)

// appConfig 在PersistentPreRunE中加载, RunE复用
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "listharvest [urls...]",
	Short: "商品列表页收集工具",
	Long: `ListHarvest - 分页/无限滚动商品列表收集工具 (Go版本)

自动遍历商品列表页并导出全部商品,支持:
  • "加载更多"按钮、下一页链接和无限滚动
  • 单目标按页码分片并行
  • 多个URL批量处理
  • CSV / TXT / JSON / SQLite 输出
  • 自定义HTTP请求头

示例:
  # 单个列表页
  listharvest https://www.carrefour.fr/promotions

  # 按页码分片并行, 输出JSON
  listharvest https://www.carrefour.fr/s?q=yaourt --parallel-single --max-pages 8 -f json

  # 批量处理
  listharvest --url-file urls.txt --workers 4

  # 自定义HTTP头部
  listharvest https://example.com/list -H "Cookie: session=abc"

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 命令行参数覆盖配置文件
		config.MergeCLIFlags(core.CLIFlags{
			Format:      format,
			OutputDir:   outputDir,
			Mode:        mode,
			ShardParam:  shardParam,
			LogLevel:    logLevel,
			MaxAttempts: maxAttempts,
			Workers:     workers,
			MaxPages:    maxPages,
			NoHeadless:  noHeadless,
			Stealth:     stealth,
		})

		if err := utils.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		if verbose {
			utils.Info("详细模式已启用")
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		headerManager, err := core.NewHeaderManager(appConfig.Browser.UserAgent, appConfig.Headers, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		if validateConfig {
			return runValidateConfig(headerManager)
		}

		urls, err := collectURLs(args, urlFile)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return cmd.Help()
		}

		if err := ValidateFlags(urls, outputFile, maxAttempts, workers, maxPages); err != nil {
			return err
		}
		if err := appConfig.Validate(); err != nil {
			return err
		}
		if _, err := headerManager.GetHeaders(); err != nil {
			return err
		}

		// 设置信号处理(Ctrl+C优雅退出)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			select {
			case sig := <-sigChan:
				utils.Warnf("\n收到中断信号: %v, 正在优雅关闭...", sig)
				cancel()
			case <-ctx.Done():
			}
		}()

		harvester, err := core.NewHarvester(appConfig, headerManager)
		if err != nil {
			return fmt.Errorf("创建收集器失败: %w", err)
		}
		defer func() {
			if err := harvester.Close(); err != nil {
				utils.Warnf("关闭内容源失败: %v", err)
			}
		}()

		// 多个URL: 批量模式
		if len(urls) > 1 {
			summary := harvester.HarvestBatch(ctx, urls)
			if summary.SuccessCount == 0 {
				return fmt.Errorf("批量收集全部失败 (%d 个URL)", summary.TotalURLs)
			}
			utils.Info("✨ 批量收集任务完成!")
			return nil
		}

		target := urls[0]
		if parallelSingle {
			_, err = harvester.HarvestSharded(ctx, target, outputFile)
		} else {
			_, err = harvester.HarvestSingle(ctx, target, singlePage, outputFile)
		}
		if err != nil {
			return fmt.Errorf("收集失败: %w", err)
		}

		utils.Info("✨ 收集任务完成!")
		return nil
	},
}

// runValidateConfig 校验配置文件与HTTP头部, 打印脱敏后的头部
func runValidateConfig(headerManager *core.HeaderManager) error {
	utils.Info("🔍 验证配置...")
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("HTTP头部验证失败: %w", err)
	}

	safeHeaders := headerManager.GetSafeHeaders()
	utils.Info("✅ 配置验证通过!")
	utils.Infof("内容源: %s, 输出格式: %s, 最大尝试: %d",
		appConfig.Browser.Mode, appConfig.Output.Format, appConfig.Traversal.MaxAttempts)
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	for name, value := range safeHeaders {
		utils.Infof("  %s: %s", name, value)
	}
	return nil
}

// collectURLs 合并位置参数与URL文件
func collectURLs(args []string, urlFile string) ([]string, error) {
	urls := append([]string{}, args...)
	if urlFile != "" {
		fromFile, err := utils.ReadURLsFromFile(urlFile)
		if err != nil {
			return nil, fmt.Errorf("读取URL文件失败: %w", err)
		}
		urls = append(urls, fromFile...)
	}
	return urls, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ListHarvest %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
		fmt.Println("Go实现版本 - 商品列表收集工具")
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 输出参数
	rootCmd.Flags().StringVarP(&format, "format", "f", "", "输出格式 (csv|txt|json|excel|sqlite)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "输出文件路径 (仅单个URL)")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", "", "自动命名时的输出目录")
	rootCmd.Flags().StringVar(&urlFile, "url-file", "", "包含URL列表的文件路径")

	// 遍历参数
	rootCmd.Flags().BoolVar(&noHeadless, "no-headless", false, "显示浏览器窗口")
	rootCmd.Flags().BoolVar(&stealth, "stealth", false, "启用反检测页面")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "", "内容源模式 (dynamic|static)")
	rootCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "最大加载尝试次数")
	rootCmd.Flags().BoolVar(&singlePage, "single-page", false, "只抽取首屏, 不翻页")

	// 分片参数
	rootCmd.Flags().BoolVar(&parallelSingle, "parallel-single", false, "单个URL按页码分片并行")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "分片页数上限")
	rootCmd.Flags().StringVar(&shardParam, "shard-param", "", "分片使用的查询参数名")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "并发数 (分片或批量)")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
}

func main() {
	err := rootCmd.Execute()
	utils.CloseLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
