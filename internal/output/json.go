package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

// JSONWriter 以缩进的对象数组写出记录,键顺序与columns一致
type JSONWriter struct{}

// orderedRecord 按列顺序序列化的记录,缺失字段为null
type orderedRecord struct {
	columns []string
	fields  map[string]string
}

func (o orderedRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range o.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v, ok := o.fields[col]
		if !ok {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Write 写出JSON数组
func (w *JSONWriter) Write(path string, columns []string, records []models.Record) error {
	if err := ensureParent(path); err != nil {
		return err
	}

	rows := make([]orderedRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, orderedRecord{columns: columns, fields: rec.Fields})
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}
