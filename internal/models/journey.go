package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/antchfx/xpath"
)

// StepType 步骤类型标签
type StepType string

const (
	StepTraverse StepType = "traverse" // 分页遍历,收集条目链接
	StepExtract  StepType = "extract"  // 从条目页提取链接
	StepObtain   StepType = "obtain"   // 下载内容到本地目录
	StepRecord   StepType = "record"   // 记录字段(当前不改变结果)
	StepDebug    StepType = "debug"    // 打开浏览器交互检查
)

// ExecutionStrategy 步骤执行策略
type ExecutionStrategy string

const (
	StrategyFetch ExecutionStrategy = "fetch"
)

// CredentialType 凭证类型
type CredentialType string

const (
	CredentialInteractive CredentialType = "interactive"
)

// Credentials 登录凭证定义
type Credentials struct {
	Type CredentialType `json:"type"`
	URL  string         `json:"url"` // 登录页面
}

// Step 旅程中的单个步骤
// 字段是否有意义由Type决定
type Step struct {
	Type               StepType          `json:"type"`
	ExecutionStrategy  ExecutionStrategy `json:"executionStrategy"`
	IncludeCredentials bool              `json:"includeCredentials,omitempty"`

	ItemSelector     string            `json:"itemSelector,omitempty"`     // traverse, extract
	NextPageSelector string            `json:"nextPageSelector,omitempty"` // traverse
	TargetDirectory  string            `json:"targetDirectory,omitempty"`  // obtain
	FieldSelectors   map[string]string `json:"fieldSelectors,omitempty"`   // record
}

// Journey 一次完整的爬取旅程,解析后不再修改
type Journey struct {
	Credentials *Credentials `json:"credentials,omitempty"`
	Beginning   []string     `json:"beginning"`
	Steps       []Step       `json:"steps"`
}

// ToJSON 序列化为JSON
func (j *Journey) ToJSON() ([]byte, error) {
	return json.MarshalIndent(j, "", "  ")
}

// JourneyError 旅程定义校验错误
type JourneyError struct {
	// Path 出错位置,如 "steps[1].itemSelector"
	Path string

	// Reason 错误原因
	Reason string

	// Cause 底层错误 (可选)
	Cause error
}

// Error 实现error接口
func (e *JourneyError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("旅程定义无效: %s", e.Reason)
	}
	return fmt.Sprintf("旅程定义无效 [%s]: %s", e.Path, e.Reason)
}

// Unwrap 支持errors.Unwrap
func (e *JourneyError) Unwrap() error {
	return e.Cause
}

// rawStep 用指针区分"缺失"和"零值"
type rawStep struct {
	Type               *string            `json:"type"`
	ExecutionStrategy  *string            `json:"executionStrategy"`
	IncludeCredentials *bool              `json:"includeCredentials"`
	ItemSelector       *string            `json:"itemSelector"`
	NextPageSelector   *string            `json:"nextPageSelector"`
	TargetDirectory    *string            `json:"targetDirectory"`
	FieldSelectors     *map[string]string `json:"fieldSelectors"`
}

type rawCredentials struct {
	Type *string `json:"type"`
	URL  *string `json:"url"`
}

type rawJourney struct {
	Credentials *rawCredentials `json:"credentials"`
	Beginning   *[]string       `json:"beginning"`
	Steps       *[]rawStep      `json:"steps"`
}

// LoadJourney 读取并校验旅程文件
// 文件不存在时返回的错误满足 errors.Is(err, fs.ErrNotExist)
func LoadJourney(path string) (*Journey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取旅程文件失败: %w", err)
	}
	return ParseJourney(data)
}

// ParseJourney 解析旅程定义
// 任何结构或取值问题都返回 *JourneyError,不会产生部分结果
func ParseJourney(data []byte) (*Journey, error) {
	var raw rawJourney
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return nil, decodeError(err)
	}

	journey := &Journey{}

	if raw.Credentials != nil {
		creds, err := convertCredentials(raw.Credentials)
		if err != nil {
			return nil, err
		}
		journey.Credentials = creds
	}

	if raw.Beginning == nil {
		return nil, &JourneyError{Path: "beginning", Reason: "缺少必填字段"}
	}
	for i, u := range *raw.Beginning {
		if err := ValidateURL(u); err != nil {
			return nil, &JourneyError{Path: fmt.Sprintf("beginning[%d]", i), Reason: err.Error(), Cause: err}
		}
	}
	journey.Beginning = append([]string{}, (*raw.Beginning)...)

	if raw.Steps == nil {
		return nil, &JourneyError{Path: "steps", Reason: "缺少必填字段"}
	}
	journey.Steps = make([]Step, 0, len(*raw.Steps))
	for i, rs := range *raw.Steps {
		step, err := convertStep(fmt.Sprintf("steps[%d]", i), rs)
		if err != nil {
			return nil, err
		}
		journey.Steps = append(journey.Steps, step)
	}

	return journey, nil
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return &JourneyError{Reason: fmt.Sprintf("JSON语法错误 (偏移 %d): %v", syntaxErr.Offset, syntaxErr), Cause: err}
	case errors.As(err, &typeErr):
		return &JourneyError{Path: typeErr.Field, Reason: fmt.Sprintf("类型错误,应为 %s,实际为 %s", typeErr.Type, typeErr.Value), Cause: err}
	default:
		return &JourneyError{Reason: fmt.Sprintf("无法解析JSON: %v", err), Cause: err}
	}
}

func convertCredentials(rc *rawCredentials) (*Credentials, error) {
	if rc.Type == nil {
		return nil, &JourneyError{Path: "credentials.type", Reason: "缺少必填字段"}
	}
	if CredentialType(*rc.Type) != CredentialInteractive {
		return nil, &JourneyError{Path: "credentials.type", Reason: fmt.Sprintf("不支持的凭证类型 %q,仅支持 %q", *rc.Type, CredentialInteractive)}
	}
	if rc.URL == nil {
		return nil, &JourneyError{Path: "credentials.url", Reason: "缺少必填字段"}
	}
	if err := ValidateURL(*rc.URL); err != nil {
		return nil, &JourneyError{Path: "credentials.url", Reason: err.Error(), Cause: err}
	}
	return &Credentials{Type: CredentialInteractive, URL: *rc.URL}, nil
}

func convertStep(path string, rs rawStep) (Step, error) {
	var step Step

	if rs.Type == nil {
		return step, &JourneyError{Path: path + ".type", Reason: "缺少必填字段"}
	}
	step.Type = StepType(*rs.Type)

	if rs.ExecutionStrategy == nil {
		return step, &JourneyError{Path: path + ".executionStrategy", Reason: "缺少必填字段"}
	}
	if ExecutionStrategy(*rs.ExecutionStrategy) != StrategyFetch {
		return step, &JourneyError{Path: path + ".executionStrategy", Reason: fmt.Sprintf("不支持的执行策略 %q,仅支持 %q", *rs.ExecutionStrategy, StrategyFetch)}
	}
	step.ExecutionStrategy = StrategyFetch

	if rs.IncludeCredentials != nil {
		step.IncludeCredentials = *rs.IncludeCredentials
	}

	switch step.Type {
	case StepTraverse:
		item, err := requireSelector(path+".itemSelector", rs.ItemSelector)
		if err != nil {
			return step, err
		}
		next, err := requireSelector(path+".nextPageSelector", rs.NextPageSelector)
		if err != nil {
			return step, err
		}
		step.ItemSelector, step.NextPageSelector = item, next

	case StepExtract:
		item, err := requireSelector(path+".itemSelector", rs.ItemSelector)
		if err != nil {
			return step, err
		}
		step.ItemSelector = item

	case StepObtain:
		if rs.TargetDirectory == nil {
			return step, &JourneyError{Path: path + ".targetDirectory", Reason: "缺少必填字段"}
		}
		if *rs.TargetDirectory == "" {
			return step, &JourneyError{Path: path + ".targetDirectory", Reason: "目录不能为空"}
		}
		step.TargetDirectory = *rs.TargetDirectory

	case StepRecord:
		if rs.FieldSelectors == nil {
			return step, &JourneyError{Path: path + ".fieldSelectors", Reason: "缺少必填字段"}
		}
		fields := make(map[string]string, len(*rs.FieldSelectors))
		names := make([]string, 0, len(*rs.FieldSelectors))
		for name := range *rs.FieldSelectors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sel := (*rs.FieldSelectors)[name]
			if _, err := requireSelector(fmt.Sprintf("%s.fieldSelectors.%s", path, name), &sel); err != nil {
				return step, err
			}
			fields[name] = sel
		}
		step.FieldSelectors = fields

	case StepDebug:
		// 无额外字段

	default:
		return step, &JourneyError{Path: path + ".type", Reason: fmt.Sprintf("未知的步骤类型 %q", *rs.Type)}
	}

	return step, nil
}

// requireSelector 检查选择器存在且能编译为XPath表达式
func requireSelector(path string, sel *string) (string, error) {
	if sel == nil {
		return "", &JourneyError{Path: path, Reason: "缺少必填字段"}
	}
	if _, err := xpath.Compile(*sel); err != nil {
		return "", &JourneyError{Path: path, Reason: fmt.Sprintf("XPath表达式无效: %v", err), Cause: err}
	}
	return *sel, nil
}
