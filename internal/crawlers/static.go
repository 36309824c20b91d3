package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/RecoveryAshes/ListHarvest/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/publicsuffix"
)

// StaticConfig 静态内容源配置
type StaticConfig struct {
	ItemSelector     string
	IgnoreCertErrors bool
	Delay            time.Duration // 同一会话内请求间隔
}

// StaticSource 基于Colly的内容源
// 不执行脚本: 仅能跟随带href的控件,滚动永远不可用
type StaticSource struct {
	config         StaticConfig
	headerProvider models.HeaderProvider
}

// NewStaticSource 创建静态内容源
func NewStaticSource(config StaticConfig, headerProvider models.HeaderProvider) *StaticSource {
	return &StaticSource{
		config:         config,
		headerProvider: headerProvider,
	}
}

// Navigate 用独立的collector和cookie jar抓取首页
func (ss *StaticSource) Navigate(ctx context.Context, location string, timeout time.Duration) (Handle, error) {
	h, err := ss.newHandle(location, timeout)
	if err != nil {
		return nil, &models.NavigationError{Location: location, Err: err}
	}
	if err := h.follow(ctx, location); err != nil {
		return nil, &models.NavigationError{Location: location, Err: err}
	}
	return h, nil
}

// Close 静态源无共享资源
func (ss *StaticSource) Close() error {
	return nil
}

func (ss *StaticSource) newHandle(location string, timeout time.Duration) (*staticHandle, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("创建cookie jar失败: %w", err)
	}

	c := colly.NewCollector(colly.AllowURLRevisit())
	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: ss.config.IgnoreCertErrors,
		},
	})
	c.SetCookieJar(jar)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	if ss.config.Delay > 0 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: ss.config.Delay}); err != nil {
			utils.Warnf("设置请求间隔失败: %v", err)
		}
	}

	h := &staticHandle{
		location:     location,
		collector:    c,
		itemSelector: ss.config.ItemSelector,
		visited:      make(map[string]bool),
	}

	c.OnRequest(func(r *colly.Request) {
		if ss.headerProvider == nil {
			return
		}
		headers, err := ss.headerProvider.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
			return
		}
		for name, values := range headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
	})

	c.OnResponse(func(r *colly.Response) {
		body := r.Body
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decompressed, err := decompressResponse(encoding, r.Body)
			if err != nil {
				utils.Debugf("解压响应失败 [%s] (编码=%s): %v, 使用原始内容", r.Request.URL, encoding, err)
			} else {
				body = decompressed
			}
		}
		h.lastBody = body
		h.lastURL = r.Request.URL
	})

	return h, nil
}

// staticHandle 累积已跟随页面的条目
type staticHandle struct {
	location     string
	collector    *colly.Collector
	itemSelector string

	mu       sync.Mutex
	closed   bool
	items    []string
	doc      *goquery.Document
	pageURL  *url.URL
	visited  map[string]bool
	lastBody []byte
	lastURL  *url.URL
}

// follow 抓取页面并追加条目
func (h *staticHandle) follow(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.lastBody = nil
	h.lastURL = nil
	if err := h.collector.Visit(target); err != nil {
		return fmt.Errorf("抓取页面失败: %w", err)
	}
	if h.lastBody == nil {
		return fmt.Errorf("抓取页面失败: 空响应")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(h.lastBody))
	if err != nil {
		return fmt.Errorf("解析HTML失败: %w", err)
	}

	var added int
	doc.Find(h.itemSelector).Each(func(_ int, s *goquery.Selection) {
		html, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		h.items = append(h.items, html)
		added++
	})

	h.doc = doc
	h.pageURL = h.lastURL
	h.visited[h.lastURL.String()] = true
	utils.Debugf("静态页面 %s 新增 %d 个条目", h.lastURL, added)
	return nil
}

func (h *staticHandle) Location() string {
	return h.location
}

func (h *staticHandle) CurrentCount(ctx context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, models.ErrSourceUnavailable
	}
	return len(h.items), nil
}

// Invoke 跟随匹配控件的href,按钮类控件视为不可用
func (h *staticHandle) Invoke(ctx context.Context, control models.ControlDescriptor) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false, models.ErrSourceUnavailable
	}
	if h.doc == nil {
		return false, nil
	}

	var next *url.URL
	h.doc.Find(control.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if _, disabled := s.Attr("disabled"); disabled {
			return true
		}
		if v, _ := s.Attr("aria-disabled"); v == "true" {
			return true
		}
		label, _ := s.Attr("aria-label")
		if !control.MatchText(strings.TrimSpace(s.Text()), label) {
			return true
		}
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return true
		}
		resolved, err := h.pageURL.Parse(href)
		if err != nil || h.visited[resolved.String()] {
			return true
		}
		next = resolved
		return false
	})

	if next == nil {
		return false, nil
	}
	if err := h.follow(ctx, next.String()); err != nil {
		return false, err
	}
	return true, nil
}

func (h *staticHandle) ScrollToBottom(ctx context.Context) (bool, error) {
	return false, nil
}

func (h *staticHandle) WaitReady(ctx context.Context, timeout time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.items) == 0 {
		return fmt.Errorf("页面中没有匹配 %s 的条目", h.itemSelector)
	}
	return nil
}

func (h *staticHandle) WaitSettled(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (h *staticHandle) Items(ctx context.Context, start int) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, models.ErrSourceUnavailable
	}
	if start < 0 {
		start = 0
	}
	if start >= len(h.items) {
		return nil, nil
	}
	out := make([]string, len(h.items)-start)
	copy(out, h.items[start:])
	return out, nil
}

func (h *staticHandle) ContentHash(ctx context.Context) (string, error) {
	items, err := h.Items(ctx, 0)
	if err != nil {
		return "", err
	}
	return HashItems(items), nil
}

func (h *staticHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.doc = nil
	return nil
}

// decompressResponse 根据Content-Encoding头部解压响应体
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()
		return io.ReadAll(reader)

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()
		return io.ReadAll(reader)

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
