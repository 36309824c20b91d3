package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/schollz/progressbar/v3"
)

// ReportSuffix 报告文件后缀,附加在输出文件名之后
const ReportSuffix = ".report.json"

// Reporter 报告生成器
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器
// outputDir为空时报告与输出文件放在一起
func NewReporter(outputDir string) *Reporter {
	return &Reporter{outputDir: outputDir}
}

// ReportPath 计算报告路径
func (r *Reporter) ReportPath(report *models.HarvestReport) string {
	if report.OutputFile != "" {
		return report.OutputFile + ReportSuffix
	}
	id := report.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	name := SlugifyURL(report.Target) + "_" + id + ReportSuffix
	if r.outputDir != "" {
		return filepath.Join(r.outputDir, name)
	}
	return name
}

// SaveReport 保存运行报告,返回写入路径
func (r *Reporter) SaveReport(report *models.HarvestReport) (string, error) {
	path := r.ReportPath(report)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("创建报告目录失败: %w", err)
		}
	}

	data, err := report.ToJSON()
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return path, nil
}

// PrintSummary 打印合并结果摘要
func PrintSummary(merged *models.MergedCollection, outputFile string) {
	fmt.Printf("\n📊 提取结果摘要:\n")
	fmt.Printf("- 商品总数: %d\n", merged.Len())
	if merged.Unidentifiable > 0 {
		fmt.Printf("- 无身份键丢弃: %d\n", merged.Unidentifiable)
	}
	if merged.Duplicates > 0 {
		fmt.Printf("- 重复记录: %d\n", merged.Duplicates)
	}
	if merged.Len() > 0 {
		fmt.Printf("- 第一个商品: %s\n", merged.Records[0].Get("name"))
		if avg, ok := AveragePrice(merged.Records); ok {
			fmt.Printf("- 平均价格: %.2f €\n", avg)
		}
	}
	if outputFile != "" {
		fmt.Printf("💾 结果已保存: %s\n", outputFile)
	}
}

// AveragePrice 计算price字段的平均值
// 价格形如"2,49 €",取第一段并把逗号视为小数点; 分母为全部记录数
func AveragePrice(records []models.Record) (float64, bool) {
	if len(records) == 0 {
		return 0, false
	}

	var sum float64
	parsed := 0
	for _, r := range records {
		price := strings.Fields(r.Get("price"))
		if len(price) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(price[0], ",", "."), 64)
		if err != nil {
			return 0, false
		}
		sum += v
		parsed++
	}
	if parsed == 0 {
		return 0, false
	}
	return sum / float64(len(records)), true
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
