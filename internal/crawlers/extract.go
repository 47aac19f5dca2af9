package crawlers

import (
	"context"
	"fmt"

	"github.com/RecoveryAshes/knapsack/internal/utils"
)

// Extract 依次抓取每个条目页,用itemSelector提取链接
// 单个页面失败只记录并跳过,结果解析为绝对URL
func Extract(ctx context.Context, fetcher *Fetcher, itemURLs []string, itemSelector string) []string {
	results := []string{}

	sel, err := CompileSelector(itemSelector)
	if err != nil {
		utils.Errorf("❌ 提取选择器无效: %v", err)
		return results
	}

	for _, itemURL := range itemURLs {
		if ctx.Err() != nil {
			break
		}

		found, err := extractOne(ctx, fetcher, itemURL, sel)
		if err != nil {
			utils.Warnf("⚠️  提取失败,跳过 [%s]: %v", itemURL, err)
			continue
		}
		results = append(results, found...)
	}

	return results
}

func extractOne(ctx context.Context, fetcher *Fetcher, itemURL string, sel *Selector) (found []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			found, err = nil, fmt.Errorf("提取panic: %v", r)
		}
	}()

	resp, ok := fetcher.Fetch(ctx, itemURL)
	if !ok {
		return nil, errNoResponse
	}

	doc, err := ParseResponse(resp)
	if err != nil {
		return nil, err
	}
	return doc.SelectURLs(sel)
}
