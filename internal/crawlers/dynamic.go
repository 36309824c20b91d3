package crawlers

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/RecoveryAshes/ListHarvest/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"
)

// DynamicConfig 浏览器内容源配置
type DynamicConfig struct {
	Headless         bool
	Stealth          bool
	BinPath          string
	IgnoreCertErrors bool
	ItemSelector     string
	ActionTimeout    time.Duration // 单次页面操作(统计/点击/滚动/读取)的上限
}

// defaultActionTimeout ActionTimeout未配置时的上限
const defaultActionTimeout = 15 * time.Second

// 浏览器断开时rod返回的错误特征
var sourceLostMarkers = []string{
	"cdp connection closed",
	"Target closed",
	"No target with given id",
	"Session with given id not found",
	"use of closed network connection",
}

const (
	scrollJS = `() => {
		const before = window.scrollY;
		window.scrollTo(0, document.body.scrollHeight);
		return window.scrollY > before;
	}`
	countJS = `(sel) => document.querySelectorAll(sel).length`
	itemsJS = `(sel, start) => Array.from(document.querySelectorAll(sel)).slice(start).map(e => e.outerHTML)`
)

// DynamicSource 基于Rod的内容源
// 浏览器进程共享,每个句柄拥有独立的隐身上下文
type DynamicSource struct {
	config         DynamicConfig
	headerProvider models.HeaderProvider

	browser *rod.Browser
	mu      sync.Mutex
	closed  bool
}

// NewDynamicSource 创建浏览器内容源,浏览器在首次导航时启动
func NewDynamicSource(config DynamicConfig, headerProvider models.HeaderProvider) *DynamicSource {
	if config.ActionTimeout <= 0 {
		config.ActionTimeout = defaultActionTimeout
	}
	if !config.Headless && runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" {
		utils.Info("未检测到图形环境($DISPLAY为空),强制使用无头模式")
		config.Headless = true
	}
	return &DynamicSource{
		config:         config,
		headerProvider: headerProvider,
	}
}

// ensureBrowser 懒启动浏览器
func (ds *DynamicSource) ensureBrowser() (*rod.Browser, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return nil, models.ErrSourceUnavailable
	}
	if ds.browser != nil {
		return ds.browser, nil
	}

	l := launcher.New().Headless(ds.config.Headless)
	if ds.config.BinPath != "" {
		l = l.Bin(ds.config.BinPath)
	}
	if ds.config.IgnoreCertErrors {
		l = l.Set("ignore-certificate-errors")
		utils.Debugf("浏览器启动参数: --ignore-certificate-errors")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	ds.browser = browser
	utils.Debugf("浏览器已启动: %s (headless=%v, stealth=%v)", controlURL, ds.config.Headless, ds.config.Stealth)
	return browser, nil
}

// Navigate 在新的隐身上下文中打开位置
func (ds *DynamicSource) Navigate(ctx context.Context, location string, timeout time.Duration) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("捕获panic: URL=%s, 错误=%v, 类型=panic恢复", location, r)
			h = nil
			err = &models.NavigationError{Location: location, Err: fmt.Errorf("导航panic: %v", r)}
		}
	}()

	browser, err := ds.ensureBrowser()
	if err != nil {
		return nil, &models.NavigationError{Location: location, Err: err}
	}

	session, err := browser.Incognito()
	if err != nil {
		return nil, &models.NavigationError{Location: location, Err: fmt.Errorf("创建隐身会话失败: %w", err)}
	}

	page, err := ds.openPage(session)
	if err != nil {
		_ = session.Close()
		return nil, &models.NavigationError{Location: location, Err: err}
	}

	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(location); err != nil {
		_ = session.Close()
		return nil, &models.NavigationError{Location: location, Err: err}
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn().Err(err).Str("url", location).Msg("等待页面加载超时,继续处理")
	}

	utils.Debugf("页面加载完成: %s", location)
	return &dynamicHandle{
		location:      location,
		session:       session,
		page:          page,
		itemSelector:  ds.config.ItemSelector,
		actionTimeout: ds.config.ActionTimeout,
	}, nil
}

// openPage 创建标签页并应用UA与自定义头部
func (ds *DynamicSource) openPage(session *rod.Browser) (*rod.Page, error) {
	var page *rod.Page
	var err error
	if ds.config.Stealth {
		page, err = stealth.Page(session)
	} else {
		page, err = session.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}

	if ds.headerProvider == nil {
		return page, nil
	}
	headers, err := ds.headerProvider.GetHeaders()
	if err != nil {
		log.Warn().Err(err).Msg("获取HTTP头部失败")
		return page, nil
	}

	var extra []string
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		switch strings.ToLower(name) {
		case "user-agent":
			if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: values[0]}); err != nil {
				log.Warn().Err(err).Msg("设置User-Agent失败")
			}
		case "accept-encoding":
			// 由浏览器自行协商
		default:
			extra = append(extra, name, values[0])
		}
	}
	if len(extra) > 0 {
		if _, err := page.SetExtraHeaders(extra); err != nil {
			log.Warn().Err(err).Msg("设置自定义头部失败")
		}
	}
	return page, nil
}

// Close 关闭浏览器
func (ds *DynamicSource) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.closed = true
	if ds.browser == nil {
		return nil
	}
	err := ds.browser.Close()
	ds.browser = nil
	utils.Debugf("浏览器已关闭")
	return err
}

// dynamicHandle 单个隐身会话中的页面
type dynamicHandle struct {
	location      string
	session       *rod.Browser
	page          *rod.Page
	itemSelector  string
	actionTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func (h *dynamicHandle) Location() string {
	return h.location
}

func (h *dynamicHandle) alive() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return models.ErrSourceUnavailable
	}
	return nil
}

// opContext 给单次页面操作加上截止时间
// rod的Click在元素被遮挡时会一直重试直到上下文结束
func (h *dynamicHandle) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := h.actionTimeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (h *dynamicHandle) CurrentCount(ctx context.Context) (int, error) {
	if err := h.alive(); err != nil {
		return 0, err
	}
	opCtx, cancel := h.opContext(ctx)
	defer cancel()
	res, err := h.page.Context(opCtx).Eval(countJS, h.itemSelector)
	if err != nil {
		return 0, classifyRodError("统计条目", err)
	}
	return res.Value.Int(), nil
}

func (h *dynamicHandle) Invoke(ctx context.Context, control models.ControlDescriptor) (bool, error) {
	if err := h.alive(); err != nil {
		return false, err
	}

	// 元素继承opCtx,Visible/Click等后续调用共享同一截止时间
	opCtx, cancel := h.opContext(ctx)
	defer cancel()
	elements, err := h.page.Context(opCtx).Elements(control.Selector)
	if err != nil {
		return false, classifyRodError("查找控件", err)
	}

	for _, el := range elements {
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		if isDisabled(el) {
			continue
		}
		if control.Text != "" {
			text, _ := el.Text()
			aria, _ := el.Attribute("aria-label")
			label := ""
			if aria != nil {
				label = *aria
			}
			if !control.MatchText(text, label) {
				continue
			}
		}

		if err := el.ScrollIntoView(); err != nil {
			log.Debug().Err(err).Str("control", control.Name).Msg("滚动到控件失败")
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return false, classifyRodError("点击控件 "+control.Name, err)
		}
		log.Debug().Str("control", control.Name).Str("selector", control.String()).Msg("已点击控件")
		return true, nil
	}
	return false, nil
}

// isDisabled 检查disabled属性和aria-disabled
func isDisabled(el *rod.Element) bool {
	if prop, err := el.Property("disabled"); err == nil && prop.Bool() {
		return true
	}
	if aria, err := el.Attribute("aria-disabled"); err == nil && aria != nil && *aria == "true" {
		return true
	}
	return false
}

func (h *dynamicHandle) ScrollToBottom(ctx context.Context) (bool, error) {
	if err := h.alive(); err != nil {
		return false, err
	}
	opCtx, cancel := h.opContext(ctx)
	defer cancel()
	res, err := h.page.Context(opCtx).Eval(scrollJS)
	if err != nil {
		return false, classifyRodError("滚动", err)
	}
	return res.Value.Bool(), nil
}

func (h *dynamicHandle) WaitReady(ctx context.Context, timeout time.Duration) error {
	if err := h.alive(); err != nil {
		return err
	}
	if _, err := h.page.Context(ctx).Timeout(timeout).Element(h.itemSelector); err != nil {
		return classifyRodError("等待条目出现", err)
	}
	return nil
}

func (h *dynamicHandle) WaitSettled(ctx context.Context, timeout time.Duration) error {
	if err := h.alive(); err != nil {
		return err
	}
	if err := h.page.Context(ctx).Timeout(timeout).WaitStable(500 * time.Millisecond); err != nil {
		return classifyRodError("等待页面稳定", err)
	}
	return nil
}

func (h *dynamicHandle) Items(ctx context.Context, start int) ([]string, error) {
	if err := h.alive(); err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	opCtx, cancel := h.opContext(ctx)
	defer cancel()
	res, err := h.page.Context(opCtx).Eval(itemsJS, h.itemSelector, start)
	if err != nil {
		return nil, classifyRodError("读取条目", err)
	}
	arr := res.Value.Arr()
	items := make([]string, 0, len(arr))
	for _, v := range arr {
		items = append(items, v.Str())
	}
	return items, nil
}

func (h *dynamicHandle) ContentHash(ctx context.Context) (string, error) {
	items, err := h.Items(ctx, 0)
	if err != nil {
		return "", err
	}
	return HashItems(items), nil
}

// Close 关闭页面所在的隐身上下文
func (h *dynamicHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.session.Close()
}

// classifyRodError 浏览器断开归为ErrSourceUnavailable,其余原样包装
func classifyRodError(op string, err error) error {
	msg := err.Error()
	for _, marker := range sourceLostMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%s: %w (%w)", op, models.ErrSourceUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
