package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

const utf8BOM = "\ufeff"

// DelimitedWriter 分隔符文本写入器(csv/txt)
type DelimitedWriter struct {
	Comma rune
	BOM   bool // 写入UTF-8 BOM,便于表格软件识别编码
}

// Write 写出表头和每条记录,缺失字段为空
func (w *DelimitedWriter) Write(path string, columns []string, records []models.Record) error {
	if err := ensureParent(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	if w.BOM {
		if _, err := buf.WriteString(utf8BOM); err != nil {
			return fmt.Errorf("写入BOM失败: %w", err)
		}
	}

	cw := csv.NewWriter(buf)
	cw.Comma = w.Comma
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}

	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = rec.Get(col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("写入记录失败: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("刷新输出失败: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("刷新输出失败: %w", err)
	}
	return nil
}
