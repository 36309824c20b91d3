package crawlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/ListHarvest/internal/models"
	"github.com/andybalholm/brotli"
)

const testItemSelector = "li.product-list-grid__item"

func listingPage(items []string, next string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, item := range items {
		fmt.Fprintf(&b, `<li class="product-list-grid__item"><a href="/p/%s">%s</a></li>`, item, item)
	}
	b.WriteString("</ul>")
	b.WriteString(`<button aria-label="Afficher les produits suivants">Voir plus</button>`)
	if next != "" {
		fmt.Fprintf(&b, `<a rel="next" href="%s">Suivant</a>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newListingServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Query().Get("page") {
		case "", "1":
			fmt.Fprint(w, listingPage([]string{"a", "b", "c"}, "/list?page=2"))
		case "2":
			fmt.Fprint(w, listingPage([]string{"d", "e"}, ""))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/br", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write([]byte(listingPage([]string{"x"}, "")))
		_ = bw.Close()
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(buf.Bytes())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStaticSource_FollowNextPage(t *testing.T) {
	srv := newListingServer(t)
	source := NewStaticSource(StaticConfig{ItemSelector: testItemSelector}, nil)
	ctx := context.Background()

	h, err := source.Navigate(ctx, srv.URL+"/list", 5*time.Second)
	if err != nil {
		t.Fatalf("导航失败: %v", err)
	}
	defer h.Close()

	count, err := h.CurrentCount(ctx)
	if err != nil || count != 3 {
		t.Fatalf("首页条目数错误: count=%d err=%v", count, err)
	}
	if err := h.WaitReady(ctx, time.Second); err != nil {
		t.Errorf("首页已有条目, WaitReady 不应失败: %v", err)
	}

	// 按钮无法在静态模式下执行
	loadMore := models.ControlDescriptor{Name: "load-more", Selector: `button[aria-label="Afficher les produits suivants"]`}
	if ok, err := h.Invoke(ctx, loadMore); ok || err != nil {
		t.Errorf("按钮控件应不可用: ok=%v err=%v", ok, err)
	}

	next := models.ControlDescriptor{Name: "rel-next", Selector: `a[rel="next"]`}
	ok, err := h.Invoke(ctx, next)
	if err != nil || !ok {
		t.Fatalf("下一页应可用: ok=%v err=%v", ok, err)
	}

	count, _ = h.CurrentCount(ctx)
	if count != 5 {
		t.Errorf("翻页后条目应累积为5, 实际 %d", count)
	}

	items, err := h.Items(ctx, 3)
	if err != nil || len(items) != 2 {
		t.Fatalf("应只返回新增的2个条目: len=%d err=%v", len(items), err)
	}
	if !strings.Contains(items[0], "/p/d") {
		t.Errorf("新增条目顺序错误: %s", items[0])
	}

	// 第二页没有下一页链接
	if ok, _ := h.Invoke(ctx, next); ok {
		t.Error("最后一页不应再有下一页")
	}

	if moved, _ := h.ScrollToBottom(ctx); moved {
		t.Error("静态模式下滚动永远不可用")
	}
}

func TestStaticSource_TextFilteredControl(t *testing.T) {
	srv := newListingServer(t)
	source := NewStaticSource(StaticConfig{ItemSelector: testItemSelector}, nil)
	ctx := context.Background()

	h, err := source.Navigate(ctx, srv.URL+"/list", 5*time.Second)
	if err != nil {
		t.Fatalf("导航失败: %v", err)
	}
	defer h.Close()

	wrongText := models.ControlDescriptor{Selector: "a", Text: "Précédent"}
	if ok, _ := h.Invoke(ctx, wrongText); ok {
		t.Error("文本不匹配的控件不应被激活")
	}

	byText := models.ControlDescriptor{Selector: "a", Text: "suivant"}
	if ok, err := h.Invoke(ctx, byText); !ok || err != nil {
		t.Errorf("按文本匹配的链接应被跟随: ok=%v err=%v", ok, err)
	}
}

func TestStaticSource_NavigationError(t *testing.T) {
	srv := newListingServer(t)
	source := NewStaticSource(StaticConfig{ItemSelector: testItemSelector}, nil)

	_, err := source.Navigate(context.Background(), srv.URL+"/list?page=404", 5*time.Second)
	if err == nil {
		t.Fatal("404页面应导航失败")
	}
	if !models.IsNavigationError(err) {
		t.Errorf("应返回NavigationError, 实际: %T %v", err, err)
	}
}

func TestStaticSource_ClosedHandle(t *testing.T) {
	srv := newListingServer(t)
	source := NewStaticSource(StaticConfig{ItemSelector: testItemSelector}, nil)
	ctx := context.Background()

	h, err := source.Navigate(ctx, srv.URL+"/list", 5*time.Second)
	if err != nil {
		t.Fatalf("导航失败: %v", err)
	}
	_ = h.Close()

	if _, err := h.CurrentCount(ctx); !errors.Is(err, models.ErrSourceUnavailable) {
		t.Errorf("关闭后应返回ErrSourceUnavailable, 实际: %v", err)
	}
}

func TestStaticSource_Brotli(t *testing.T) {
	srv := newListingServer(t)
	source := NewStaticSource(StaticConfig{ItemSelector: testItemSelector}, nil)
	ctx := context.Background()

	h, err := source.Navigate(ctx, srv.URL+"/br", 5*time.Second)
	if err != nil {
		t.Fatalf("导航失败: %v", err)
	}
	defer h.Close()

	if count, _ := h.CurrentCount(ctx); count != 1 {
		t.Errorf("brotli响应应被解压并解析出1个条目, 实际 %d", count)
	}
}

func TestHashItems(t *testing.T) {
	a := HashItems([]string{"ab", "c"})
	b := HashItems([]string{"a", "bc"})
	if a == b {
		t.Error("不同的条目切分应产生不同的指纹")
	}
	if HashItems([]string{"x"}) != HashItems([]string{"x"}) {
		t.Error("指纹应稳定")
	}
}

func TestDecompressResponse(t *testing.T) {
	plain := []byte("hello")
	out, err := decompressResponse("identity", plain)
	if err != nil || string(out) != "hello" {
		t.Errorf("identity 应原样返回: %s %v", out, err)
	}
	if _, err := decompressResponse("gzip", plain); err == nil {
		t.Error("非gzip内容应解压失败")
	}
}
