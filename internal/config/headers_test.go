package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/knapsack/internal/models"
)

func TestHeaderConfigLoader_LoadConfig(t *testing.T) {
	t.Run("显式路径不存在时返回空配置且不生成文件", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "headers.yaml")
		loader := NewHeaderConfigLoader(configPath)

		cfg, err := loader.LoadConfig()
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}
		if cfg.Headers == nil || len(cfg.Headers) != 0 {
			t.Errorf("期望空Headers, 实际=%v", cfg.Headers)
		}
		if _, err := os.Stat(configPath); !os.IsNotExist(err) {
			t.Error("显式路径不应被自动生成")
		}
	})

	t.Run("默认路径不存在时生成模板", func(t *testing.T) {
		dir := t.TempDir()
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}
		defer os.Chdir(wd)

		loader := NewHeaderConfigLoader("")
		if loader.Path() != DefaultConfigFile {
			t.Errorf("Path() = %s, want %s", loader.Path(), DefaultConfigFile)
		}

		cfg, err := loader.LoadConfig()
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, DefaultConfigFile)); err != nil {
			t.Fatalf("模板应该被生成: %v", err)
		}
		// 模板中的头部全部被注释
		if len(cfg.Headers) != 0 {
			t.Errorf("模板不应包含生效的头部: %v", cfg.Headers)
		}
	})

	t.Run("加载已存在的配置文件", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "headers.yaml")
		testConfig := `headers:
  User-Agent: "Test Bot/1.0"
  X-Custom: "test value"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("写入测试配置失败: %v", err)
		}

		cfg, err := NewHeaderConfigLoader(configPath).LoadConfig()
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}

		// viper会将键名转换为小写
		if cfg.Headers["user-agent"] != "Test Bot/1.0" {
			t.Errorf("期望 user-agent='Test Bot/1.0', 实际='%s'", cfg.Headers["user-agent"])
		}
		if cfg.Headers["x-custom"] != "test value" {
			t.Errorf("期望 x-custom='test value', 实际='%s'", cfg.Headers["x-custom"])
		}
	})

	t.Run("YAML格式错误返回ConfigError", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "headers.yaml")
		badConfig := `headers:
  User-Agent: "Test Bot
  X-Custom: missing quote
`
		if err := os.WriteFile(configPath, []byte(badConfig), 0644); err != nil {
			t.Fatalf("写入错误配置失败: %v", err)
		}

		_, err := NewHeaderConfigLoader(configPath).LoadConfig()
		var cfgErr *models.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("期望 *models.ConfigError, 实际 %v", err)
		}
	})

	t.Run("空配置文件处理", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "headers.yaml")
		if err := os.WriteFile(configPath, []byte(`headers:`), 0644); err != nil {
			t.Fatalf("写入空配置失败: %v", err)
		}

		cfg, err := NewHeaderConfigLoader(configPath).LoadConfig()
		if err != nil {
			t.Fatalf("加载空配置失败: %v", err)
		}
		if cfg.Headers == nil {
			t.Fatal("Headers map应该被初始化为空map")
		}
	})

	t.Run("配置文件大小验证", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "headers.yaml")
		largeConfig := make([]byte, MaxConfigFileSize+1)
		if err := os.WriteFile(configPath, largeConfig, 0644); err != nil {
			t.Fatalf("写入大配置失败: %v", err)
		}

		if _, err := NewHeaderConfigLoader(configPath).LoadConfig(); err == nil {
			t.Fatal("期望超大配置文件被拒绝,但成功了")
		}
	})
}
