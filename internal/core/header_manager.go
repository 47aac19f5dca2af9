package core

import (
	"net/http"

	"github.com/RecoveryAshes/knapsack/internal/config"
	"github.com/RecoveryAshes/knapsack/internal/models"
	"github.com/RecoveryAshes/knapsack/internal/utils"
)

const (
	// DefaultUserAgent 默认User-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"

	cookieHeader = "Cookie"
)

// HeaderManager 管理旅程请求的HTTP头部
// 实现 HeaderProvider 接口
//
// 普通传输使用 GetHeaders 的结果,带凭证的传输在此基础上加上登录Cookie。
// 配置文件和命令行中的Cookie头部会被丢弃。
type HeaderManager struct {
	// defaults 系统默认头部 (硬编码)
	defaults http.Header

	// config 从配置文件加载的头部
	config http.Header

	// cli 从命令行参数解析的头部
	cli http.Header

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader

	// loaded 标记配置是否已加载
	loaded bool
}

// NewHeaderManager 创建头部管理器
// 参数:
//   - configFile: 头部配置文件路径 (为空则使用默认路径)
//   - cliHeaders: 命令行传递的头部字符串列表
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	hm := &HeaderManager{
		defaults:     getDefaultHeaders(),
		config:       make(http.Header),
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoader(configFile),
	}

	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}
	hm.cli = dropCookie(cli, "命令行")

	return hm, nil
}

var (
	_ models.HeaderProvider = (*HeaderManager)(nil)
	_ HeaderSource          = (*HeaderManager)(nil)
)

// getDefaultHeaders 返回系统默认头部
func getDefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      []string{DefaultUserAgent},
		"Accept":          []string{"*/*"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
	}
}

// dropCookie 移除Cookie头部,Cookie只来自登录流程
func dropCookie(headers http.Header, source string) http.Header {
	if headers.Get(cookieHeader) != "" {
		utils.Warnf("⚠️  忽略%s中的Cookie头部,Cookie只能通过credentials登录获得", source)
		headers.Del(cookieHeader)
	}
	return headers
}

// LoadConfig 加载头部配置文件,已加载则跳过
func (hm *HeaderManager) LoadConfig() error {
	if hm.loaded {
		return nil
	}

	headerConfig, err := hm.configLoader.LoadConfig()
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败: %v", err)
		return err
	}

	loaded := make(http.Header)
	for name, value := range headerConfig.Headers {
		loaded.Set(name, value)
	}
	hm.config = dropCookie(loaded, "配置文件")
	hm.loaded = true

	if len(hm.config) > 0 {
		utils.Debugf("成功加载%d个HTTP头部配置: %v", len(hm.config), hm.redactor.Redact(hm.config))
	}

	return nil
}

// Validate 验证所有头部的合法性
// 验证顺序: 默认 → 配置 → 命令行
func (hm *HeaderManager) Validate() error {
	if err := hm.validator.Validate(hm.defaults); err != nil {
		utils.Errorf("默认头部验证失败: %v", err)
		return err
	}

	if err := hm.validator.Validate(hm.config); err != nil {
		utils.Errorf("配置文件头部验证失败: %v", err)
		return err
	}

	if err := hm.validator.Validate(hm.cli); err != nil {
		utils.Errorf("命令行头部验证失败: %v", err)
		return err
	}

	utils.Debugf("所有HTTP头部验证通过")
	return nil
}

// GetMergedHeaders 按优先级合并头部 (default < config < cli)
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range layer {
			result[name] = append([]string(nil), values...)
		}
	}
	return result
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.LoadConfig(); err != nil {
		return nil, err
	}

	if err := hm.Validate(); err != nil {
		return nil, err
	}

	return hm.GetMergedHeaders(), nil
}

// CredentialedHeaders 在普通头部基础上附加登录Cookie
// Cookie值按 "name=value; name=value" 拼接,没有Cookie时不设置该头部
//
// 含非法字符的Cookie单独丢弃;拼接后超过长度上限时整个Cookie头部不设置。
// 返回的error只来自普通头部的配置错误。
func (hm *HeaderManager) CredentialedHeaders(cookies []models.Cookie) (http.Header, error) {
	headers, err := hm.GetHeaders()
	if err != nil {
		return nil, err
	}

	value := models.CookieHeader(hm.usableCookies(cookies))
	if err := hm.validator.ValidateCookieValue(value); err != nil {
		utils.Warnf("⚠️  登录Cookie不可用,带凭证的请求将不包含Cookie: %v", err)
		value = ""
	}
	if value != "" {
		headers.Set(cookieHeader, value)
	}

	utils.Debugf("带凭证的请求头: %s", hm.redactor.RedactToString(headers))
	return headers, nil
}

// usableCookies 过滤掉无法放入Cookie头部的Cookie
func (hm *HeaderManager) usableCookies(cookies []models.Cookie) []models.Cookie {
	usable := make([]models.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			utils.Warn("⚠️  丢弃没有名称的登录Cookie")
			continue
		}
		if err := hm.validator.ValidateCookieValue(c.Name + "=" + c.Value); err != nil {
			utils.Warnf("⚠️  丢弃登录Cookie %q: %v", c.Name, err)
			continue
		}
		usable = append(usable, c)
	}
	return usable
}
