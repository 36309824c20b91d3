package main

import (
	"fmt"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

// ValidateFlags 验证命令行标志, 0表示沿用配置文件
func ValidateFlags(urls []string, outputFile string, maxAttempts, workers, maxPages int) error {
	for _, u := range urls {
		if err := models.ValidateURL(u); err != nil {
			return fmt.Errorf("无效的目标URL %s: %w", u, err)
		}
	}

	if outputFile != "" && len(urls) > 1 {
		return fmt.Errorf("多个URL时不能指定 -o/--output, 请使用 --output-dir")
	}

	if maxAttempts < 0 || maxAttempts > 500 {
		return fmt.Errorf("最大尝试次数必须在1-500之间,当前值: %d", maxAttempts)
	}
	if workers < 0 || workers > 32 {
		return fmt.Errorf("并发数必须在1-32之间,当前值: %d", workers)
	}
	if maxPages < 0 || maxPages > 1000 {
		return fmt.Errorf("分片页数必须在2-1000之间,当前值: %d", maxPages)
	}
	return nil
}
