package crawlers

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/knapsack/internal/utils"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Document 已解析的页面,带有用于解析相对链接的页面URL
type Document struct {
	base *url.URL
	root *html.Node
}

// ParseDocument 解析UTF-8响应体
func ParseDocument(pageURL string, body []byte) (*Document, error) {
	return parseDocument(pageURL, bytes.NewReader(body))
}

// ParseResponse 解析响应,按Content-Type和<meta charset>转换为UTF-8
func ParseResponse(resp *Response) (*Document, error) {
	r, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType())
	if err != nil {
		utils.Debugf("无法识别页面编码 [%s],按UTF-8解析: %v", resp.URL, err)
		return ParseDocument(resp.URL, resp.Body)
	}
	return parseDocument(resp.URL, r)
}

func parseDocument(pageURL string, r io.Reader) (*Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("解析页面URL失败: %w", err)
	}

	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	return &Document{base: base, root: root}, nil
}

// Resolve 将页面中的引用转换为绝对URL
// 空引用或无法解析的引用返回false
func (d *Document) Resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	linkURL, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return d.base.ResolveReference(linkURL).String(), true
}

// Selector 编译后的XPath选择器
type Selector struct {
	raw  string
	expr *xpath.Expr
}

// CompileSelector 编译XPath表达式
func CompileSelector(expr string) (*Selector, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("XPath表达式无效 %q: %w", expr, err)
	}
	return &Selector{raw: expr, expr: compiled}, nil
}

// String 返回原始表达式
func (s *Selector) String() string {
	return s.raw
}

// Strings 对文档求值,返回每个结果的字符串值
//
// 节点集按文档顺序返回每个节点的字符串值(属性值或文本内容);
// 字符串、数字、布尔结果返回单个值。
func (s *Selector) Strings(doc *Document) (values []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			values, err = nil, fmt.Errorf("XPath求值panic %q: %v", s.raw, r)
		}
	}()

	switch result := s.expr.Evaluate(htmlquery.CreateXPathNavigator(doc.root)).(type) {
	case *xpath.NodeIterator:
		for result.MoveNext() {
			values = append(values, result.Current().Value())
		}
	case string:
		values = append(values, result)
	case float64:
		values = append(values, strconv.FormatFloat(result, 'f', -1, 64))
	case bool:
		values = append(values, strconv.FormatBool(result))
	default:
		return nil, fmt.Errorf("不支持的XPath结果类型 %T", result)
	}
	return values, nil
}

// SelectURLs 求值并将结果解析为绝对URL,按匹配顺序返回
// 空值和无法解析的值被跳过
func (d *Document) SelectURLs(sel *Selector) ([]string, error) {
	values, err := sel.Strings(d)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(values))
	for _, v := range values {
		if abs, ok := d.Resolve(v); ok {
			urls = append(urls, abs)
		}
	}
	return urls, nil
}
