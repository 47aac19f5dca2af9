// Package crawlers 提供旅程步骤使用的抓取、遍历、提取和下载功能
//
// # 概述
//
// crawlers包把一次旅程中所有网络相关的工作组织为几个独立的组件:
// 传输层(Transport)负责单次请求,抓取器(Fetcher)在传输层之上做退避重试,
// Traverse/Extract/Obtain 三个步骤函数在抓取器之上处理页面。
//
// # 核心组件
//
// ## HTTPTransport
//
// 基于Colly的传输实现。每个请求附加固定的头部集合,带凭证的传输
// 只是多了一个Cookie头部。网络错误和 429/502/503/504 以error返回,
// 其它状态码作为正常响应返回。
//
//	transport := NewHTTPTransport(HTTPTransportConfig{Timeout: 30 * time.Second, Headers: headers})
//	resp, err := transport.Fetch(ctx, "https://example.com/list")
//
// ## Retry / Fetcher
//
// 指数退避: 第一次失败后等待 InitialDelay,之后每次乘以 BackoffFactor。
// MaxRetries 为负数时无限重试,MaxDelay 为0时不设上限。
// 重试耗尽返回 (零值, false),调用方把它当作"没有结果"跳过。
//
//	fetcher := NewFetcher(transport, DefaultRetryConfig())
//	resp, ok := fetcher.Fetch(ctx, url)
//
// ## Frontier
//
// 广度优先遍历的待访问队列。下一页链接只入队一次,起始URL不预先标记。
//
// ## Document / Selector
//
// 使用htmlquery解析HTML,用XPath表达式求值。节点集返回每个节点的字符串值,
// 结果按页面URL解析为绝对URL,空值和无法解析的值被跳过。
//
// # 步骤函数
//
//	items := Traverse(ctx, fetcher, beginning, itemSelector, nextPageSelector)
//	links := Extract(ctx, fetcher, items, itemSelector)
//	links, files := Obtain(ctx, fetcher, "./out", links, ObtainOptions{Progress: os.Stderr})
//
// # 错误处理
//
//   - 单个URL失败只记录日志并跳过,不影响后续URL
//   - 选择器求值中的panic被恢复为错误
//   - Obtain 拒绝覆盖已存在的文件
//   - context取消后所有循环尽快返回已得到的结果
package crawlers
