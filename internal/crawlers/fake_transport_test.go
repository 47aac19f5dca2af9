package crawlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// fakeTransport 按URL返回预设响应的传输层,记录每个URL的请求次数
type fakeTransport struct {
	mu    sync.Mutex
	pages map[string]*Response
	errs  map[string]error
	calls map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		pages: make(map[string]*Response),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// html 注册一个HTML页面
func (f *fakeTransport) html(url, body string) {
	f.page(url, "text/html; charset=utf-8", []byte(body))
}

func (f *fakeTransport) page(url, contentType string, body []byte) {
	f.pages[url] = &Response{
		URL:        url,
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{contentType}},
		Body:       body,
	}
}

func (f *fakeTransport) Fetch(ctx context.Context, url string) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if resp, ok := f.pages[url]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("未知URL: %s", url)
}

func (f *fakeTransport) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// noRetry 失败立即放弃的重试配置
var noRetry = RetryConfig{MaxRetries: 0, BackoffFactor: 2}

func newTestFetcher(transport Transport) *Fetcher {
	return NewFetcher(transport, noRetry)
}
