package utils

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

// MaxHeaderValueLength 单个请求头值的上限 (字节)
const MaxHeaderValueLength = 8192

// ForbiddenHeaders 由HTTP客户端或浏览器自行维护的头部
var ForbiddenHeaders = []string{"Host", "Content-Length", "Transfer-Encoding", "Connection"}

// HeaderValidator 检查自定义请求头能否安全下发给colly和rod
type HeaderValidator struct {
	forbidden map[string]bool
	maxValue  int
}

// NewHeaderValidator 创建验证器
func NewHeaderValidator() *HeaderValidator {
	forbidden := make(map[string]bool, len(ForbiddenHeaders))
	for _, h := range ForbiddenHeaders {
		forbidden[http.CanonicalHeaderKey(h)] = true
	}
	return &HeaderValidator{forbidden: forbidden, maxValue: MaxHeaderValueLength}
}

// IsForbidden 头部是否由客户端管理
func (hv *HeaderValidator) IsForbidden(name string) bool {
	return hv.forbidden[http.CanonicalHeaderKey(name)]
}

// ValidateHeader 检查单个头部; 名称只允许字母数字和连字符, 值只允许可打印ASCII
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	switch {
	case name == "":
		return &models.HeaderError{Name: name, Reason: "名称不能为空"}
	case hv.IsForbidden(name):
		return &models.HeaderError{Name: name, Reason: "由HTTP客户端自动管理,请移除该配置"}
	case strings.IndexFunc(name, invalidNameRune) >= 0:
		return &models.HeaderError{Name: name, Reason: "名称只能包含字母、数字和连字符"}
	case len(value) > hv.maxValue:
		return &models.HeaderError{Name: name, Reason: fmt.Sprintf("值过长: %d 字节 (最大 %d)", len(value), hv.maxValue)}
	case strings.IndexFunc(value, invalidValueRune) >= 0:
		return &models.HeaderError{Name: name, Reason: "值包含控制字符或非ASCII字符"}
	}
	return nil
}

// Validate 按名称顺序检查全部头部,返回第一个错误
func (hv *HeaderValidator) Validate(headers http.Header) error {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range headers[name] {
			if err := hv.ValidateHeader(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func invalidNameRune(r rune) bool {
	return !(r == '-' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
}

func invalidValueRune(r rune) bool {
	return r != '\t' && (r < 0x20 || r > 0x7E)
}
