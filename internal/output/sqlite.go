package output

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

const recordsSchema = `CREATE TABLE IF NOT EXISTS records (
	key         TEXT PRIMARY KEY,
	shard_index INTEGER NOT NULL DEFAULT 0,
	fields      TEXT NOT NULL,
	stored_at   INTEGER NOT NULL
)`

// SQLiteWriter 写入SQLite数据库的records表
// 同一身份键再次写入时覆盖旧行
type SQLiteWriter struct{}

// OpenDB 打开SQLite连接并设置常用pragma
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("设置pragma失败: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	return db, nil
}

// Write 在一个事务中写入所有记录
func (w *SQLiteWriter) Write(path string, columns []string, records []models.Record) error {
	if err := ensureParent(path); err != nil {
		return err
	}

	db, err := OpenDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(recordsSchema); err != nil {
		return fmt.Errorf("创建records表失败: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO records (key, shard_index, fields, stored_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("准备语句失败: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, rec := range records {
		data, err := json.Marshal(orderedRecord{columns: columns, fields: rec.Fields})
		if err != nil {
			return fmt.Errorf("序列化记录失败: %w", err)
		}
		if _, err := stmt.Exec(rec.Key, rec.ShardIndex, string(data), now); err != nil {
			return fmt.Errorf("写入记录 %s 失败: %w", rec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}
