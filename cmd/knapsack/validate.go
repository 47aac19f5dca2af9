package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/RecoveryAshes/knapsack/internal/models"
)

// ValidateFlags 验证命令行标志
func ValidateFlags(journeyPath string, maxRetries int) error {
	if journeyPath == "" {
		return fmt.Errorf("旅程文件路径不能为空")
	}

	// 验证重试次数
	if maxRetries < -1 {
		return fmt.Errorf("最大重试次数必须大于等于-1,当前值: %d", maxRetries)
	}

	return nil
}

// LoadJourney 读取并验证旅程文件,返回面向用户的错误信息
func LoadJourney(path string) (*models.Journey, error) {
	journey, err := models.LoadJourney(path)
	if err == nil {
		return journey, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("找不到旅程文件 %s", path)
	}

	var journeyErr *models.JourneyError
	if errors.As(err, &journeyErr) {
		return nil, fmt.Errorf("旅程定义格式错误: %w", journeyErr)
	}

	return nil, fmt.Errorf("读取旅程文件失败: %w", err)
}
