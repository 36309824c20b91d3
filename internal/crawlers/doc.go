// Package crawlers 提供列表页的内容源实现
//
// # 概述
//
// crawlers包把"打开页面、触发加载动作、观测条目数量"抽象为ContentSource/Handle两个接口,
// 遍历控制器只依赖接口,不关心页面是由浏览器渲染还是由HTTP抓取得到。
//
// # 核心组件
//
// ## DynamicSource
//
// 基于go-rod的浏览器内容源。浏览器进程在首次导航时懒启动并在所有句柄间共享,
// 每次Navigate都会创建独立的隐身上下文(Incognito),分片之间不共享cookie和存储。
// 可选启用go-rod/stealth降低被识别概率。
//
//	source := NewDynamicSource(DynamicConfig{Headless: true, ItemSelector: "li.item"}, headerProvider)
//	defer source.Close()
//
//	h, err := source.Navigate(ctx, "https://example.com/list", 30*time.Second)
//	if err != nil { /* *models.NavigationError */ }
//	defer h.Close()
//
// ## StaticSource
//
// 基于Colly的静态内容源,每个句柄拥有独立的collector与cookie jar。
// 无法执行脚本,因此只能跟随带href的"下一页"控件,按钮和滚动视为不可用。
// 响应体支持gzip/deflate/brotli解压,条目通过goquery抽取为outerHTML。
//
// ## ResourceMonitor (资源监控器)
//
// 使用gopsutil读取可用内存和CPU负载,估算可同时打开的浏览器会话数,
// 用于收紧分片执行器的并发预算。
//
// # 错误约定
//
//   - Navigate失败一律返回*models.NavigationError
//   - 句柄关闭或浏览器断开后,所有操作返回包装了models.ErrSourceUnavailable的错误
//   - Invoke找不到可用控件时返回(false, nil),不是错误
package crawlers
