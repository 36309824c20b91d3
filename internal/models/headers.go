package models

import (
	"fmt"
	"net/http"
	"strings"
)

// HeaderProvider 为内容源提供请求头
// 两种内容源在建立会话时各调用一次
type HeaderProvider interface {
	GetHeaders() (http.Header, error)
}

// ParseHeaderLines 解析 -H 传入的 "Name: Value" 列表
// 同名头部以最后一次为准
func ParseHeaderLines(lines []string) (http.Header, error) {
	headers := make(http.Header, len(lines))
	for i, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("参数 --header 第%d项 %q 格式错误,应为 'Name: Value'", i+1, line)
		}
		headers.Set(name, strings.TrimSpace(value))
	}
	return headers, nil
}
