package browser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RecoveryAshes/knapsack/internal/utils"
)

// Inspector 在可见浏览器中打开条目,等待用户关闭窗口
type Inspector struct {
	config Config
}

// NewInspector 创建检查器
func NewInspector(config Config) *Inspector {
	defaults := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.DebugMaxPages <= 0 {
		config.DebugMaxPages = defaults.DebugMaxPages
	}
	return &Inspector{config: config}
}

// Inspect 打开前 DebugMaxPages 个条目,所有标签页关闭后返回
// headers会附加到这些页面的每个请求上
func (i *Inspector) Inspect(ctx context.Context, items []string, headers http.Header) error {
	if len(items) == 0 {
		utils.Info("🔍 没有可检查的条目")
		return nil
	}

	s, err := launch(i.config)
	if err != nil {
		return err
	}
	defer s.close()

	pairs := headerPairs(headers)
	opened := 0
	for _, item := range items {
		if opened >= i.config.DebugMaxPages {
			break
		}

		page, err := s.openPage("about:blank")
		if err != nil {
			return err
		}
		if len(pairs) > 0 {
			if _, err := page.SetExtraHeaders(pairs); err != nil {
				return fmt.Errorf("设置请求头失败: %w", err)
			}
		}
		if err := page.Navigate(item); err != nil {
			utils.Warnf("⚠️  导航失败 [%s]: %v", item, err)
			continue
		}
		opened++
	}

	utils.Infof("🔍 已打开 %d/%d 个条目,检查完成后关闭浏览器窗口", opened, len(items))

	ticker := time.NewTicker(i.config.PollInterval)
	defer ticker.Stop()

	for {
		pages, err := s.browser.Pages()
		if err != nil || len(pages) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
