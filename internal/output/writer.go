// Package output 负责把合并后的记录写入文件
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

// 支持的输出格式
const (
	FormatCSV    = "csv"
	FormatTXT    = "txt"
	FormatJSON   = "json"
	FormatExcel  = "excel"
	FormatSQLite = "sqlite"
)

// Formats 所有支持的格式
var Formats = []string{FormatCSV, FormatTXT, FormatJSON, FormatExcel, FormatSQLite}

// formatAliases 按扩展名书写的格式名
var formatAliases = map[string]string{
	"xlsx": FormatExcel,
	"db":   FormatSQLite,
}

// normalizeFormat 小写并展开别名
func normalizeFormat(format string) string {
	f := strings.ToLower(format)
	if alias, ok := formatAliases[f]; ok {
		return alias
	}
	return f
}

// Writer 记录写入器
type Writer interface {
	// Write 按columns顺序写出记录,覆盖已存在的文件
	Write(path string, columns []string, records []models.Record) error
}

// WriterFor 根据格式返回写入器
func WriterFor(format string) (Writer, error) {
	switch normalizeFormat(format) {
	case FormatCSV:
		return &DelimitedWriter{Comma: ';', BOM: true}, nil
	case FormatTXT:
		return &DelimitedWriter{Comma: '\t'}, nil
	case FormatJSON:
		return &JSONWriter{}, nil
	case FormatExcel:
		return &ExcelWriter{}, nil
	case FormatSQLite:
		return &SQLiteWriter{}, nil
	default:
		return nil, fmt.Errorf("不支持的输出格式: %s (可选: %s)", format, strings.Join(Formats, ", "))
	}
}

// ValidFormat 格式是否受支持
func ValidFormat(format string) bool {
	format = normalizeFormat(format)
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Extension 格式对应的文件扩展名
func Extension(format string) string {
	switch f := normalizeFormat(format); f {
	case FormatSQLite:
		return "db"
	case FormatExcel:
		return "xlsx"
	default:
		return f
	}
}

// ensureParent 创建输出文件所在目录
func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	return nil
}
