// Package config 加载旅程请求使用的HTTP头部配置文件
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/RecoveryAshes/knapsack/internal/models"
	"github.com/RecoveryAshes/knapsack/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile 默认头部配置文件路径
	DefaultConfigFile = "configs/headers.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024
)

//go:embed headers_template.yaml
var defaultHeaderTemplate string

// HeaderConfigLoader 头部配置文件加载器
type HeaderConfigLoader struct {
	configPath string

	// createIfMissing 文件不存在时是否生成模板
	createIfMissing bool
}

// NewHeaderConfigLoader 创建配置文件加载器
// configPath为空时使用默认路径,并在文件缺失时生成模板;
// 显式指定的文件缺失时视为没有额外头部。
func NewHeaderConfigLoader(configPath string) *HeaderConfigLoader {
	createIfMissing := false
	if configPath == "" {
		configPath = DefaultConfigFile
		createIfMissing = true
	}
	return &HeaderConfigLoader{
		configPath:      configPath,
		createIfMissing: createIfMissing,
	}
}

// Path 返回配置文件路径
func (hcl *HeaderConfigLoader) Path() string {
	return hcl.configPath
}

// EnsureConfigExists 确保配置文件存在,如不存在则写入模板
func (hcl *HeaderConfigLoader) EnsureConfigExists() error {
	if _, err := os.Stat(hcl.configPath); os.IsNotExist(err) {
		dir := filepath.Dir(hcl.configPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
		}

		if err := os.WriteFile(hcl.configPath, []byte(defaultHeaderTemplate), 0644); err != nil {
			return fmt.Errorf("无法生成配置文件 [%s]: %w", hcl.configPath, err)
		}
		utils.Infof("📝 已生成头部配置模板: %s", hcl.configPath)
	}
	return nil
}

// ValidateFileSize 验证配置文件大小是否在限制内
func (hcl *HeaderConfigLoader) ValidateFileSize() error {
	info, err := os.Stat(hcl.configPath)
	if err != nil {
		return fmt.Errorf("无法读取配置文件信息 [%s]: %w", hcl.configPath, err)
	}

	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: hcl.configPath,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxConfigFileSize),
		}
	}

	return nil
}

// LoadConfig 加载配置文件并解析为HeaderConfig
// 执行流程:
//  1. 默认路径缺失时生成模板,显式路径缺失时返回空配置
//  2. 验证文件大小
//  3. 使用Viper解析YAML并绑定到HeaderConfig
func (hcl *HeaderConfigLoader) LoadConfig() (*models.HeaderConfig, error) {
	empty := &models.HeaderConfig{Headers: make(map[string]string)}

	if hcl.createIfMissing {
		if err := hcl.EnsureConfigExists(); err != nil {
			// 无法写模板(如只读目录)不影响运行
			utils.Warnf("⚠️  %v, 使用默认头部", err)
			return empty, nil
		}
	} else if _, err := os.Stat(hcl.configPath); os.IsNotExist(err) {
		utils.Warnf("⚠️  头部配置文件不存在 [%s], 使用默认头部", hcl.configPath)
		return empty, nil
	}

	if err := hcl.ValidateFileSize(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(hcl.configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// 配置文件被其他进程锁定时降级使用默认头部
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			utils.Warnf("配置文件被锁定 [%s], 使用默认配置", hcl.configPath)
			return empty, nil
		}

		return nil, &models.ConfigError{
			FilePath: hcl.configPath,
			Cause:    err,
		}
	}

	var config models.HeaderConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{
			FilePath: hcl.configPath,
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}

	// 模板中headers只有注释时解析为nil
	if config.Headers == nil {
		config.Headers = make(map[string]string)
	}

	return &config, nil
}
