package utils

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

// ReadURLsFromFile 从文件中读取URL列表
func ReadURLsFromFile(urlFile string) ([]string, error) {
	file, err := os.Open(urlFile)
	if err != nil {
		return nil, fmt.Errorf("打开URL文件失败: %w", err)
	}
	defer file.Close()

	urls := make([]string, 0)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// 跳过空行和注释行
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := models.ValidateURL(line); err != nil {
			Warnf("跳过无效URL (行 %d): %s - %v", lineNum, line, err)
			continue
		}

		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取URL文件失败: %w", err)
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("URL文件中没有有效的URL")
	}

	Infof("从文件加载了 %d 个URL", len(urls))
	return urls, nil
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SlugifyURL 把URL转换为可作文件名的片段: host_path_query
// 查询串中的非字母数字替换为下划线,最多保留80个字符
func SlugifyURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(strings.Trim(nonAlnum.ReplaceAllString(rawURL, "_"), "_"))
	}

	path := strings.Trim(strings.ReplaceAll(parsed.Path, "/", "_"), "_")
	query := strings.Trim(nonAlnum.ReplaceAllString(parsed.RawQuery, "_"), "_")

	base := parsed.Host
	if path != "" {
		base = base + "_" + path
	}
	if query != "" {
		if len(query) > 80 {
			query = query[:80]
		}
		base = base + "_" + query
	}
	return strings.Trim(strings.ToLower(base), "_")
}

// OutputPath 生成带时间戳的输出路径,必要时创建目录
// tag非空时插入文件名,如merged
func OutputPath(outputDir, target, tag, ext string) (string, error) {
	name := SlugifyURL(target)
	if tag != "" {
		name += "_" + tag
	}
	name = fmt.Sprintf("%s_%d.%s", name, time.Now().Unix(), ext)

	if outputDir == "" {
		return name, nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	return filepath.Join(outputDir, name), nil
}
