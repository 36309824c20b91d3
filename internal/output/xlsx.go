package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

const xlsxSheet = "products"

// ExcelWriter 写入单工作表的xlsx文件,首行为表头
type ExcelWriter struct{}

// Write 按列顺序逐行写入,缺失字段为空单元格
func (w *ExcelWriter) Write(path string, columns []string, records []models.Record) error {
	if err := ensureParent(path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return fmt.Errorf("设置工作表名称失败: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(xlsxSheet, 1, 1, style)
	}

	row := make([]interface{}, len(columns))
	for i, rec := range records {
		for j, col := range columns {
			row[j] = rec.Get(col)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("计算单元格位置失败: %w", err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("写入记录 %s 失败: %w", rec.Key, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存xlsx失败: %w", err)
	}
	return nil
}
