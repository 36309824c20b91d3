package traversal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/crawlers"
	"github.com/RecoveryAshes/ListHarvest/internal/models"
)

var testCatalog = models.ControlCatalog{
	LoadMore: []models.ControlDescriptor{{Name: "more", Selector: ".more"}},
	NextPage: []models.ControlDescriptor{{Name: "next", Selector: ".next"}},
	Consent:  []models.ControlDescriptor{{Name: "consent", Selector: "#consent"}},
}

// fakeSource 总是返回同一个脚本化句柄
type fakeSource struct {
	handle *fakeHandle
	navErr error
}

func (s *fakeSource) Navigate(ctx context.Context, location string, timeout time.Duration) (crawlers.Handle, error) {
	if s.navErr != nil {
		return nil, &models.NavigationError{Location: location, Err: s.navErr}
	}
	s.handle.location = location
	return s.handle, nil
}

func (s *fakeSource) Close() error { return nil }

// fakeHandle 脚本化的页面
type fakeHandle struct {
	mu       sync.Mutex
	location string
	items    []string
	nextID   int

	loadMore        []int // 每次点击加载更多新增的条目数
	loadMoreForever bool  // 批次耗尽后控件仍然存在
	nextPages       []int // 每次翻页的条目数
	replaceOnNext   bool  // 翻页替换而不是追加
	scroll          []int // 每次滚动新增的条目数
	invokeErr       error // 加载更多控件报错
	loseAfter       int   // 第N次统计后内容源丢失, 0 表示从不

	readyErr    error            // WaitReady的返回值
	consent     map[string]bool  // 页面上存在的同意弹窗按钮,点击后消失
	consentErrs map[string]error // 点击报错的同意弹窗按钮

	countCalls int
	invokes    map[string]int
	closed     bool
}

func newFakeHandle(initial int) *fakeHandle {
	h := &fakeHandle{invokes: make(map[string]int)}
	h.add(initial)
	return h
}

func (h *fakeHandle) add(n int) {
	for i := 0; i < n; i++ {
		h.nextID++
		h.items = append(h.items, fmt.Sprintf("item-%03d", h.nextID))
	}
}

func (h *fakeHandle) Location() string { return h.location }

func (h *fakeHandle) CurrentCount(ctx context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.countCalls++
	if h.closed || (h.loseAfter > 0 && h.countCalls > h.loseAfter) {
		return 0, models.ErrSourceUnavailable
	}
	return len(h.items), nil
}

func (h *fakeHandle) Invoke(ctx context.Context, control models.ControlDescriptor) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invokes[control.Selector]++

	switch control.Selector {
	case ".more":
		if h.invokeErr != nil {
			return false, h.invokeErr
		}
		if len(h.loadMore) == 0 {
			return h.loadMoreForever, nil
		}
		h.add(h.loadMore[0])
		h.loadMore = h.loadMore[1:]
		return true, nil
	case ".next":
		if len(h.nextPages) == 0 {
			return false, nil
		}
		if h.replaceOnNext {
			h.items = nil
		}
		h.add(h.nextPages[0])
		h.nextPages = h.nextPages[1:]
		return true, nil
	}
	if err := h.consentErrs[control.Selector]; err != nil {
		return false, err
	}
	if h.consent[control.Selector] {
		delete(h.consent, control.Selector)
		return true, nil
	}
	return false, nil
}

func (h *fakeHandle) ScrollToBottom(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invokes["scroll"]++
	if len(h.scroll) == 0 {
		return false, nil
	}
	h.add(h.scroll[0])
	h.scroll = h.scroll[1:]
	return true, nil
}

func (h *fakeHandle) WaitReady(ctx context.Context, timeout time.Duration) error { return h.readyErr }

func (h *fakeHandle) WaitSettled(ctx context.Context, timeout time.Duration) error { return nil }

func (h *fakeHandle) Items(ctx context.Context, start int) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, models.ErrSourceUnavailable
	}
	if start >= len(h.items) {
		return nil, nil
	}
	out := make([]string, len(h.items)-start)
	copy(out, h.items[start:])
	return out, nil
}

func (h *fakeHandle) ContentHash(ctx context.Context) (string, error) {
	items, err := h.Items(ctx, 0)
	if err != nil {
		return "", err
	}
	return crawlers.HashItems(items), nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// keyExtractor 以条目文本为身份键
type keyExtractor struct {
	failEvery int // 每N个条目失败一次, 0 表示从不
}

func (e *keyExtractor) Extract(ctx context.Context, h crawlers.Handle, start int) ([]models.Record, error) {
	items, err := h.Items(ctx, start)
	if err != nil {
		return nil, err
	}
	var records []models.Record
	var errs []error
	for i, item := range items {
		if e.failEvery > 0 && (start+i+1)%e.failEvery == 0 {
			errs = append(errs, &models.ExtractionFailure{Index: start + i, Err: errors.New("缺少名称")})
			continue
		}
		records = append(records, models.Record{Key: item, Fields: map[string]string{"name": item}})
	}
	return records, errors.Join(errs...)
}

func fastRequest() models.TraversalRequest {
	req := models.DefaultTraversalRequest("https://shop.test/list")
	req.AttemptTimeout = 60 * time.Millisecond
	req.PollInterval = 5 * time.Millisecond
	req.ScrollPause = 10 * time.Millisecond
	req.MaxAttempts = 10
	return req
}
