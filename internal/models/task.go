package models

import (
	"encoding/json"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"   // 待执行
	TaskStatusRunning   TaskStatus = "running"   // 执行中
	TaskStatusCompleted TaskStatus = "completed" // 已完成
	TaskStatusFailed    TaskStatus = "failed"    // 失败
)

// StepStats 单个步骤的统计
type StepStats struct {
	Index           int      `json:"index"`            // 步骤序号(从0开始)
	Type            StepType `json:"type"`             // 步骤类型
	InputCount      int      `json:"input_count"`      // 输入条目数
	OutputCount     int      `json:"output_count"`     // 输出条目数
	UsedCredentials bool     `json:"used_credentials"` // 是否使用了带凭证的传输
	Duration        float64  `json:"duration"`         // 耗时(秒)
}

// JourneyTask 一次旅程执行
type JourneyTask struct {
	ID          string     `json:"id"`                     // 任务唯一ID (UUID)
	JourneyPath string     `json:"journey_path"`           // 旅程文件路径
	CreatedAt   time.Time  `json:"created_at"`             // 创建时间
	StartedAt   *time.Time `json:"started_at,omitempty"`   // 开始时间
	CompletedAt *time.Time `json:"completed_at,omitempty"` // 完成时间

	Status TaskStatus  `json:"status"`
	Steps  []StepStats `json:"steps"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// NewJourneyTask 创建新任务
func NewJourneyTask(journeyPath string) *JourneyTask {
	return &JourneyTask{
		ID:          generateID(),
		JourneyPath: journeyPath,
		CreatedAt:   time.Now(),
		Status:      TaskStatusPending,
		Steps:       []StepStats{},
	}
}

// Start 标记任务开始
func (t *JourneyTask) Start() {
	now := time.Now()
	t.StartedAt = &now
	t.Status = TaskStatusRunning
}

// Finish 标记任务结束,err非空时记为失败
func (t *JourneyTask) Finish(err error) {
	now := time.Now()
	t.CompletedAt = &now
	if err != nil {
		t.Status = TaskStatusFailed
		t.ErrorMessage = err.Error()
		return
	}
	t.Status = TaskStatusCompleted
}

// Duration 已执行时长
func (t *JourneyTask) Duration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if t.CompletedAt != nil {
		end = *t.CompletedAt
	}
	return end.Sub(*t.StartedAt)
}

// ToJSON 序列化为JSON
func (t *JourneyTask) ToJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}
