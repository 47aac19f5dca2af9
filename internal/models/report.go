package models

import (
	"encoding/json"
	"time"
)

// JourneyReport 旅程执行报告
type JourneyReport struct {
	// 任务信息
	TaskID      string     `json:"task_id"`
	JourneyPath string     `json:"journey_path"`
	Status      TaskStatus `json:"status"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 步骤统计
	BeginningCount int         `json:"beginning_count"`
	Steps          []StepStats `json:"steps"`

	// 结果
	Result        []string        `json:"result"`
	ObtainedFiles []*ObtainedFile `json:"obtained_files"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// NewJourneyReport 根据已结束的任务生成报告
func NewJourneyReport(task *JourneyTask, journey *Journey, result []string, files []*ObtainedFile) *JourneyReport {
	report := &JourneyReport{
		TaskID:        task.ID,
		JourneyPath:   task.JourneyPath,
		Status:        task.Status,
		Duration:      task.Duration().Seconds(),
		Steps:         task.Steps,
		Result:        result,
		ObtainedFiles: files,
		ErrorMessage:  task.ErrorMessage,
	}
	if task.StartedAt != nil {
		report.StartTime = *task.StartedAt
	}
	if task.CompletedAt != nil {
		report.EndTime = *task.CompletedAt
	}
	if journey != nil {
		report.BeginningCount = len(journey.Beginning)
	}
	if report.Result == nil {
		report.Result = []string{}
	}
	if report.ObtainedFiles == nil {
		report.ObtainedFiles = []*ObtainedFile{}
	}
	return report
}

// ToJSON 序列化为JSON
func (r *JourneyReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *JourneyReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
