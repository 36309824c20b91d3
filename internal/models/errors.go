package models

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable 句柄已关闭或浏览器已退出
	ErrSourceUnavailable = errors.New("内容源不可用")
	// ErrActionUnavailable 未找到可用控件
	ErrActionUnavailable = errors.New("无可用加载控件")
	// ErrNoProgress 动作执行后条目数未在超时内增加
	ErrNoProgress = errors.New("加载动作无进展")
	// ErrInvalidLocation 列表页地址无法抓取
	ErrInvalidLocation = errors.New("无效的列表页地址")
)

// NavigationError 无法建立内容源句柄,对该分片是致命错误
type NavigationError struct {
	Location string
	Err      error
}

// Error 实现error接口
func (e *NavigationError) Error() string {
	return fmt.Sprintf("导航失败 [%s]: %v", e.Location, e.Err)
}

// Unwrap 支持errors.Unwrap
func (e *NavigationError) Unwrap() error {
	return e.Err
}

// ExtractionFailure 单条记录或单次抽取失败
type ExtractionFailure struct {
	Index int // 条目下标,整次抽取失败时为-1
	Err   error
}

// Error 实现error接口
func (e *ExtractionFailure) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("抽取失败: %v", e.Err)
	}
	return fmt.Sprintf("抽取条目#%d失败: %v", e.Index, e.Err)
}

// Unwrap 支持errors.Unwrap
func (e *ExtractionFailure) Unwrap() error {
	return e.Err
}

// IsNavigationError 判断是否为导航错误
func IsNavigationError(err error) bool {
	var navErr *NavigationError
	return errors.As(err, &navErr)
}

// HeaderError 自定义请求头不合法
type HeaderError struct {
	Source string // default / config / cli
	Name   string
	Reason string
}

// Error 实现error接口
func (e *HeaderError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("请求头 %q 无效: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("%s请求头 %q 无效: %s", e.Source, e.Name, e.Reason)
}

// ConfigError 配置文件无法读取或解析
type ConfigError struct {
	FilePath string
	Cause    error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
