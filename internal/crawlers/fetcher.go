package crawlers

import (
	"context"

	"github.com/RecoveryAshes/knapsack/internal/utils"
)

// Fetcher 带退避重试的抓取器
type Fetcher struct {
	transport Transport
	retry     RetryConfig
}

// NewFetcher 创建抓取器
func NewFetcher(transport Transport, retry RetryConfig) *Fetcher {
	return &Fetcher{transport: transport, retry: retry}
}

// Fetch 抓取URL,失败时按退避策略重试
// 重试耗尽返回false,调用方跳过该URL
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, bool) {
	utils.Infof("🌐 抓取: %s", url)

	resp, ok := Retry(ctx, func(ctx context.Context) (*Response, error) {
		return f.transport.Fetch(ctx, url)
	}, func(attempt int, err error) {
		utils.Warnf("⚠️  抓取失败 (第%d次尝试) [%s]: %v", attempt, url, err)
	}, f.retry)
	if !ok {
		utils.Warnf("❌ 放弃抓取: %s", url)
		return nil, false
	}

	if resp.StatusCode >= 400 {
		utils.Warnf("⚠️  HTTP %d [%s]", resp.StatusCode, url)
	}
	return resp, true
}
