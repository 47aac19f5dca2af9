package browser

import (
	"context"
	"time"

	"github.com/RecoveryAshes/knapsack/internal/models"
	"github.com/RecoveryAshes/knapsack/internal/utils"
)

// LoginCookieProvider 交互式登录: 打开登录页,等待用户关闭窗口后返回最后一次收集到的Cookie
type LoginCookieProvider struct {
	config Config
}

// NewLoginCookieProvider 创建登录Cookie提供者
func NewLoginCookieProvider(config Config) *LoginCookieProvider {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	return &LoginCookieProvider{config: config}
}

// GetLoginCookies 返回登录后的Cookie
// 任何内部错误都只记录警告,返回已收集到的Cookie(可能为空)
func (p *LoginCookieProvider) GetLoginCookies(ctx context.Context, loginURL string) []models.Cookie {
	latest := []models.Cookie{}

	s, err := launch(p.config)
	if err != nil {
		utils.Warnf("⚠️  获取登录Cookie失败: %v", err)
		return latest
	}
	defer s.close()

	page, err := s.openPage(loginURL)
	if err != nil {
		utils.Warnf("⚠️  获取登录Cookie失败: %v", err)
		return latest
	}

	utils.Info("🔐 请在浏览器中完成登录,然后关闭窗口")

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		cookies, err := page.Timeout(p.config.PollInterval).Cookies(nil)
		if err != nil {
			// 窗口已关闭
			utils.Debugf("停止收集Cookie: %v", err)
			break
		}
		latest = toCookies(cookies)

		select {
		case <-ctx.Done():
			utils.Warnf("⚠️  登录被取消: %v", ctx.Err())
			return latest
		case <-ticker.C:
		}
	}

	utils.Infof("🍪 收集到 %d 个Cookie", len(latest))
	return latest
}
