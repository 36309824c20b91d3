package crawlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

// ContentSource 根据位置建立可操作的页面句柄
type ContentSource interface {
	// Navigate 打开位置并返回独立句柄,失败时返回*models.NavigationError
	Navigate(ctx context.Context, location string, timeout time.Duration) (Handle, error)
	// Close 释放源持有的共享资源(如浏览器进程)
	Close() error
}

// Handle 单个会话内的活动页面
// 动作是发出即忘的,效果只能通过CurrentCount观测
type Handle interface {
	Location() string

	// CurrentCount 当前已物化的条目数
	CurrentCount(ctx context.Context) (int, error)

	// Invoke 激活第一个匹配、可用且可见的控件; 没有时返回false
	Invoke(ctx context.Context, control models.ControlDescriptor) (bool, error)

	// ScrollToBottom 滚动到底部,返回视口是否移动
	ScrollToBottom(ctx context.Context) (bool, error)

	// WaitReady 等待首个条目出现
	WaitReady(ctx context.Context, timeout time.Duration) error

	// WaitSettled 等待页面空闲(翻页后)
	WaitSettled(ctx context.Context, timeout time.Duration) error

	// Items 返回从start开始的条目HTML
	Items(ctx context.Context, start int) ([]string, error)

	Close() error
}

// Fingerprinter 可选能力: 返回已物化条目的内容指纹(替换型页面)
type Fingerprinter interface {
	ContentHash(ctx context.Context) (string, error)
}

// HashItems 计算条目HTML的SHA-256指纹
func HashItems(items []string) string {
	h := sha256.New()
	for _, item := range items {
		h.Write([]byte(item))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
