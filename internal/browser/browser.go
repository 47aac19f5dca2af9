// Package browser 通过go-rod驱动可见的Chromium窗口
//
// 提供两种交互式能力:
//   - LoginCookieProvider: 打开登录页,用户登录并关闭窗口后返回收集到的Cookie
//   - Inspector: 在浏览器中打开当前结果页面,供debug步骤人工检查
//
// 两者都需要本地可用的Chromium,找不到时由launcher自动下载。
package browser

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/RecoveryAshes/knapsack/internal/models"
	"github.com/RecoveryAshes/knapsack/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Config 浏览器配置
type Config struct {
	// Bin Chromium可执行文件路径,为空时自动查找或下载
	Bin string

	// PollInterval 检查窗口是否关闭的间隔
	PollInterval time.Duration

	// DebugMaxPages debug步骤最多打开的页面数
	DebugMaxPages int

	// IgnoreCertErrors 忽略TLS证书错误
	IgnoreCertErrors bool
}

// DefaultConfig 默认浏览器配置
func DefaultConfig() Config {
	return Config{
		PollInterval:  time.Second,
		DebugMaxPages: 5,
	}
}

// session 一个已连接的浏览器进程
type session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// launch 启动可见浏览器并连接
func launch(config Config) (*session, error) {
	l := launcher.New().Headless(false)
	if config.Bin != "" {
		l = l.Bin(config.Bin)
	}
	if config.IgnoreCertErrors {
		l = l.Set("ignore-certificate-errors")
		utils.Debugf("浏览器启动参数: --ignore-certificate-errors (跳过TLS证书验证)")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s", controlURL)
	return &session{launcher: l, browser: b}, nil
}

// close 关闭浏览器并清理进程
func (s *session) close() {
	if err := s.browser.Close(); err != nil {
		utils.Debugf("关闭浏览器: %v", err)
	}
	s.launcher.Kill()
	utils.Debugf("浏览器已关闭")
}

// openPage 新建标签页并导航到url
func (s *session) openPage(url string) (*rod.Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("打开页面失败 [%s]: %w", url, err)
	}
	return page, nil
}

// toCookies 转换为模型Cookie
func toCookies(cookies []*proto.NetworkCookie) []models.Cookie {
	result := make([]models.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		result = append(result, models.Cookie{Name: c.Name, Value: c.Value})
	}
	return result
}

// headerPairs 将头部展开为rod SetExtraHeaders需要的 [name, value, ...] 形式
// 按名称排序,同名多值用逗号合并
func headerPairs(headers http.Header) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		values := headers.Values(name)
		if len(values) == 0 {
			continue
		}
		pairs = append(pairs, name, strings.Join(values, ", "))
	}
	return pairs
}
