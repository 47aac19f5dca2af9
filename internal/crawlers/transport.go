package crawlers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/knapsack/internal/utils"
	"github.com/gocolly/colly/v2"
)

var (
	// ErrTransientStatus 服务器返回了值得重试的状态码
	ErrTransientStatus = errors.New("服务器暂时不可用")

	// ErrBodyTruncated 响应体超过大小上限被截断
	ErrBodyTruncated = errors.New("响应体超过大小上限")
)

// transientStatus 需要重试的HTTP状态码
var transientStatus = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// Response 一次抓取得到的响应
// URL始终是请求的URL,页面中的相对链接按它解析
type Response struct {
	URL        string      // 请求的URL
	FinalURL   string      // 重定向后的URL,没有重定向时与URL相同
	StatusCode int         // HTTP状态码
	Headers    http.Header // 响应头
	Body       []byte      // 已解码的响应体

	truncated bool
}

// ContentType 返回响应的Content-Type
func (r *Response) ContentType() string {
	return r.Headers.Get("Content-Type")
}

// Transport 抓取单个URL
// 网络错误和可重试状态码以error返回,其它状态码作为正常响应返回
type Transport interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// HTTPTransportConfig HTTP传输配置
type HTTPTransportConfig struct {
	Timeout            time.Duration // 单次请求超时
	MaxBodySize        int           // 响应体上限(字节),0使用colly默认值
	InsecureSkipVerify bool          // 跳过TLS证书验证
	Headers            http.Header   // 每个请求附加的头部
}

// HTTPTransport 基于Colly的传输实现
// 普通传输和带凭证的传输只在附加头部上不同
type HTTPTransport struct {
	collector *colly.Collector
	headers   http.Header
}

const responseKey = "knapsack_response"

// rawBodyTransport 没有Content-Encoding的响应标记为未压缩,
// colly不会再按Content-Type或 .xml.gz 后缀自行gunzip
type rawBodyTransport struct {
	base http.RoundTripper
}

func (t *rawBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if res.Header.Get("Content-Encoding") == "" {
		res.Uncompressed = true
	}
	return res, nil
}

// NewHTTPTransport 创建HTTP传输
func NewHTTPTransport(config HTTPTransportConfig) *HTTPTransport {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	// Cookie只通过显式的Cookie头部传递
	c.DisableCookies()

	c.WithTransport(&rawBodyTransport{
		base: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: config.InsecureSkipVerify,
			},
		},
	})
	if config.InsecureSkipVerify {
		utils.Debugf("HTTP传输: TLS证书验证已禁用")
	}

	if config.Timeout > 0 {
		c.SetRequestTimeout(config.Timeout)
	}
	if config.MaxBodySize > 0 {
		c.MaxBodySize = config.MaxBodySize
	}

	maxBodySize := c.MaxBodySize

	c.OnResponse(func(r *colly.Response) {
		finalURL := r.Request.URL.String()

		headers := http.Header{}
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}

		body := r.Body
		if contentEncoding := headers.Get("Content-Encoding"); contentEncoding != "" {
			decoded, err := decodeBody(contentEncoding, r.Body)
			if err != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", finalURL, contentEncoding, err)
			} else {
				body = decoded
			}
		}

		r.Ctx.Put(responseKey, &Response{
			FinalURL:   finalURL,
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       body,
			truncated:  bodyTruncated(headers, r.Body, maxBodySize),
		})
	})

	headers := http.Header{}
	if config.Headers != nil {
		headers = config.Headers.Clone()
	}

	return &HTTPTransport{
		collector: c,
		headers:   headers,
	}
}

// Headers 返回附加头部的副本
func (t *HTTPTransport) Headers() http.Header {
	return t.headers.Clone()
}

// Fetch 发起GET请求
func (t *HTTPTransport) Fetch(ctx context.Context, url string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cctx := colly.NewContext()
	if err := t.collector.Request(http.MethodGet, url, nil, cctx, t.headers.Clone()); err != nil {
		return nil, fmt.Errorf("请求失败 [%s]: %w", url, err)
	}

	resp, ok := cctx.GetAny(responseKey).(*Response)
	if !ok || resp == nil {
		return nil, fmt.Errorf("未收到响应 [%s]", url)
	}
	resp.URL = url
	if resp.FinalURL != url {
		utils.Debugf("重定向: %s -> %s", url, resp.FinalURL)
	}

	if resp.truncated {
		return nil, Permanent(fmt.Errorf("%w: %d 字节 [%s]", ErrBodyTruncated, len(resp.Body), url))
	}

	if transientStatus[resp.StatusCode] {
		return nil, fmt.Errorf("%w: HTTP %d [%s]", ErrTransientStatus, resp.StatusCode, url)
	}

	return resp, nil
}

// bodyTruncated 判断colly读取的原始响应体是否被大小上限截断
// 有Content-Length时按声明长度判断,否则读满上限即视为截断
func bodyTruncated(headers http.Header, raw []byte, maxBodySize int) bool {
	if maxBodySize <= 0 {
		return false
	}
	// gzip由colly解压,截断的gzip流在读取时就会报错
	if strings.Contains(strings.ToLower(headers.Get("Content-Encoding")), "gzip") {
		return false
	}
	if declared, err := strconv.ParseInt(headers.Get("Content-Length"), 10, 64); err == nil && declared >= 0 {
		return declared > int64(len(raw))
	}
	return len(raw) >= maxBodySize
}
