package crawlers

import (
	"context"

	"github.com/RecoveryAshes/knapsack/internal/utils"
)

// Traverse 从起始URL开始广度优先遍历分页
//
// 每个页面用itemSelector收集条目链接,用nextPageSelector发现下一页。
// 下一页链接只入队一次;条目链接不去重,按页面访问顺序和匹配顺序输出。
// 抓取或解析失败的页面不贡献结果,遍历继续。
func Traverse(ctx context.Context, fetcher *Fetcher, startURLs []string, itemSelector, nextPageSelector string) []string {
	items := []string{}

	itemSel, err := CompileSelector(itemSelector)
	if err != nil {
		utils.Errorf("❌ 条目选择器无效: %v", err)
		return items
	}
	nextSel, err := CompileSelector(nextPageSelector)
	if err != nil {
		utils.Errorf("❌ 下一页选择器无效: %v", err)
		return items
	}

	frontier := NewFrontier(startURLs)
	visited := 0

	for ctx.Err() == nil {
		pageURL, ok := frontier.Pop()
		if !ok {
			break
		}
		visited++

		resp, ok := fetcher.Fetch(ctx, pageURL)
		if !ok {
			continue
		}

		doc, err := ParseResponse(resp)
		if err != nil {
			utils.Warnf("⚠️  解析页面失败,跳过 [%s]: %v", pageURL, err)
			continue
		}

		found, err := doc.SelectURLs(itemSel)
		if err != nil {
			utils.Warnf("⚠️  提取条目失败 [%s]: %v", pageURL, err)
		}
		items = append(items, found...)

		nextPages, err := doc.SelectURLs(nextSel)
		if err != nil {
			utils.Warnf("⚠️  提取下一页失败 [%s]: %v", pageURL, err)
		}
		queued := 0
		for _, next := range nextPages {
			if frontier.Push(next) {
				queued++
			}
		}

		utils.Debugf("页面 %s: %d 个条目, %d 个新页面入队, 待处理 %d", pageURL, len(found), queued, frontier.PendingCount())
	}

	utils.Infof("📄 遍历完成: 访问 %d 个页面, 收集 %d 个条目", visited, len(items))
	return items
}
