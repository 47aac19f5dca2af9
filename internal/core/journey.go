package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/RecoveryAshes/knapsack/internal/crawlers"
	"github.com/RecoveryAshes/knapsack/internal/models"
	"github.com/RecoveryAshes/knapsack/internal/utils"
)

// HeaderSource 提供普通请求头和带登录Cookie的请求头
// HeaderManager 实现此接口
type HeaderSource interface {
	GetHeaders() (http.Header, error)
	CredentialedHeaders(cookies []models.Cookie) (http.Header, error)
}

// CookieProvider 交互式登录,返回登录后的Cookie
type CookieProvider interface {
	GetLoginCookies(ctx context.Context, loginURL string) []models.Cookie
}

// Inspector debug步骤使用的交互检查器
type Inspector interface {
	Inspect(ctx context.Context, items []string, headers http.Header) error
}

// TransportFactory 用给定头部创建传输层
type TransportFactory func(headers http.Header) crawlers.Transport

// RunnerOptions 旅程执行器的依赖
type RunnerOptions struct {
	JourneyPath  string
	Headers      HeaderSource
	NewTransport TransportFactory
	Cookies      CookieProvider
	Inspector    Inspector
	Retry        crawlers.RetryConfig
	Progress     io.Writer // obtain步骤的进度条输出,nil表示不显示
}

// JourneyRunner 按顺序执行旅程中的步骤
type JourneyRunner struct {
	opts RunnerOptions

	task  *models.JourneyTask
	files []*models.ObtainedFile
}

// stepTransport 一个传输实例及其抓取器
// 旅程开始时解析一次,之后各步骤只读共享
type stepTransport struct {
	name    string
	headers http.Header
	fetcher *crawlers.Fetcher
}

// NewJourneyRunner 创建旅程执行器
func NewJourneyRunner(opts RunnerOptions) *JourneyRunner {
	if opts.NewTransport == nil {
		opts.NewTransport = func(headers http.Header) crawlers.Transport {
			return crawlers.NewHTTPTransport(crawlers.HTTPTransportConfig{Headers: headers})
		}
	}
	return &JourneyRunner{opts: opts}
}

// Execute 执行旅程,返回最后一个步骤的结果
//
// 结果从 journey.Beginning 开始,每个步骤的输出替换当前结果。
// 单个步骤内的失败只记录日志;返回的error只来自传输层构建失败或ctx取消。
func (r *JourneyRunner) Execute(ctx context.Context, journey *models.Journey) (result []string, err error) {
	r.task = models.NewJourneyTask(r.opts.JourneyPath)
	r.files = []*models.ObtainedFile{}
	r.task.Start()
	defer func() {
		r.task.Finish(err)
	}()

	utils.Infof("🚀 开始执行旅程: %d 个起始URL, %d 个步骤", len(journey.Beginning), len(journey.Steps))

	plain, err := r.plainTransport()
	if err != nil {
		return nil, err
	}

	credentialed, err := r.credentialedTransport(ctx, journey.Credentials)
	if err != nil {
		return nil, err
	}

	result = append([]string{}, journey.Beginning...)
	for i, step := range journey.Steps {
		if ctx.Err() != nil {
			utils.Warnf("⚠️  旅程在第%d步前被中断", i)
			return result, ctx.Err()
		}
		result = r.runStep(ctx, i, step, result, plain, credentialed)
	}

	utils.Infof("✅ 旅程完成: %d 个结果 (耗时 %v)", len(result), r.task.Duration().Round(time.Millisecond))
	return result, nil
}

// plainTransport 构建不带凭证的传输
func (r *JourneyRunner) plainTransport() (*stepTransport, error) {
	headers := http.Header{}
	if r.opts.Headers != nil {
		h, err := r.opts.Headers.GetHeaders()
		if err != nil {
			return nil, fmt.Errorf("构建请求头失败: %w", err)
		}
		headers = h
	}
	return r.newStepTransport("普通", headers), nil
}

// credentialedTransport 登录一次并构建带Cookie的传输
// 旅程没有credentials时返回nil
func (r *JourneyRunner) credentialedTransport(ctx context.Context, creds *models.Credentials) (*stepTransport, error) {
	if creds == nil {
		return nil, nil
	}
	if r.opts.Cookies == nil {
		utils.Warn("⚠️  旅程定义了credentials,但没有可用的登录方式,跳过登录")
		return nil, nil
	}

	utils.Infof("🔐 交互式登录: %s", creds.URL)
	cookies := r.opts.Cookies.GetLoginCookies(ctx, creds.URL)
	if len(cookies) == 0 {
		utils.Warn("⚠️  登录后没有得到Cookie,带凭证的请求将不包含Cookie")
	}

	headers := http.Header{}
	if r.opts.Headers != nil {
		h, err := r.opts.Headers.CredentialedHeaders(cookies)
		if err != nil {
			return nil, fmt.Errorf("构建带凭证的请求头失败: %w", err)
		}
		headers = h
	} else if value := models.CookieHeader(cookies); value != "" {
		headers.Set("Cookie", value)
	}

	return r.newStepTransport("带凭证", headers), nil
}

func (r *JourneyRunner) newStepTransport(name string, headers http.Header) *stepTransport {
	return &stepTransport{
		name:    name,
		headers: headers,
		fetcher: crawlers.NewFetcher(r.opts.NewTransport(headers.Clone()), r.opts.Retry),
	}
}

// runStep 执行单个步骤,返回新的结果
func (r *JourneyRunner) runStep(ctx context.Context, index int, step models.Step, input []string, plain, credentialed *stepTransport) []string {
	start := time.Now()
	utils.Infof("▶️  [%s] on %d items", step.Type, len(input))

	transport := plain
	if step.IncludeCredentials {
		if credentialed != nil {
			transport = credentialed
		} else {
			utils.Warnf("⚠️  步骤%d要求凭证,但旅程没有credentials,使用普通传输", index)
		}
	}

	var output []string
	switch step.Type {
	case models.StepTraverse:
		output = crawlers.Traverse(ctx, transport.fetcher, input, step.ItemSelector, step.NextPageSelector)

	case models.StepExtract:
		output = crawlers.Extract(ctx, transport.fetcher, input, step.ItemSelector)

	case models.StepObtain:
		var files []*models.ObtainedFile
		output, files = crawlers.Obtain(ctx, transport.fetcher, step.TargetDirectory, input, crawlers.ObtainOptions{
			Progress: r.opts.Progress,
		})
		r.files = append(r.files, files...)

	case models.StepRecord:
		utils.Debugf("记录字段 %v,结果保持不变", fieldNames(step.FieldSelectors))
		output = input

	case models.StepDebug:
		r.inspect(ctx, input, transport)
		output = input

	default:
		utils.Warnf("⚠️  unknown step: %q,结果保持不变", step.Type)
		output = input
	}

	stats := models.StepStats{
		Index:           index,
		Type:            step.Type,
		InputCount:      len(input),
		OutputCount:     len(output),
		UsedCredentials: transport == credentialed && credentialed != nil,
		Duration:        time.Since(start).Seconds(),
	}
	r.task.Steps = append(r.task.Steps, stats)
	utils.Debugf("步骤%d [%s] 使用%s传输: %d -> %d", index, step.Type, transport.name, stats.InputCount, stats.OutputCount)

	return output
}

func (r *JourneyRunner) inspect(ctx context.Context, items []string, transport *stepTransport) {
	if r.opts.Inspector == nil {
		utils.Warn("⚠️  没有可用的浏览器检查器,跳过debug步骤")
		return
	}
	if err := r.opts.Inspector.Inspect(ctx, items, transport.headers.Clone()); err != nil {
		utils.Warnf("⚠️  debug步骤失败: %v", err)
	}
}

// fieldNames 返回排序后的字段名
func fieldNames(selectors map[string]string) []string {
	names := make([]string, 0, len(selectors))
	for name := range selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Task 返回最近一次执行的任务记录
func (r *JourneyRunner) Task() *models.JourneyTask {
	return r.task
}

// ObtainedFiles 返回最近一次执行中写入的文件
func (r *JourneyRunner) ObtainedFiles() []*models.ObtainedFile {
	return r.files
}

// Report 生成最近一次执行的报告,尚未执行时返回nil
func (r *JourneyRunner) Report(journey *models.Journey, result []string) *models.JourneyReport {
	if r.task == nil {
		return nil
	}
	return models.NewJourneyReport(r.task, journey, result, r.files)
}
