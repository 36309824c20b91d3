package models

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseLocation 解析列表页地址
// 首尾空白会被去掉; 只接受带主机名的http/https地址,查询参数和片段原样保留
func ParseLocation(raw string) (*url.URL, error) {
	location := strings.TrimSpace(raw)
	if location == "" {
		return nil, fmt.Errorf("%w: 地址为空", ErrInvalidLocation)
	}

	parsed, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	switch parsed.Scheme {
	case "http", "https":
	case "":
		return nil, fmt.Errorf("%w: 缺少协议, 请以 https:// 开头 (%s)", ErrInvalidLocation, location)
	default:
		return nil, fmt.Errorf("%w: 不支持 %s 协议, 只能抓取http/https列表页 (%s)", ErrInvalidLocation, parsed.Scheme, location)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: 缺少主机名 (%s)", ErrInvalidLocation, location)
	}
	return parsed, nil
}

// ValidateURL 校验列表页地址
func ValidateURL(raw string) error {
	_, err := ParseLocation(raw)
	return err
}
