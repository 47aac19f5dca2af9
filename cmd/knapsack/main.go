package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/knapsack/internal/browser"
	"github.com/RecoveryAshes/knapsack/internal/core"
	"github.com/RecoveryAshes/knapsack/internal/crawlers"
	"github.com/RecoveryAshes/knapsack/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// DefaultJourneyFile 默认旅程文件
const DefaultJourneyFile = "./knapsack.json"

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string
	maxRetries int

	// HTTP头部参数
	headers []string

	// 旅程参数
	journeyFile string
	report      bool
)

// appConfig 在PersistentPreRunE中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "knapsack",
	Short: "声明式网页爬取旅程执行器",
	Long: `knapsack - 声明式网页爬取工具

在JSON文件中描述一次"旅程": 起始URL、可选的交互式登录和一组步骤,
knapsack按顺序执行这些步骤:
  • traverse  分页遍历,收集条目链接
  • extract   从条目页提取链接
  • obtain    下载内容到本地目录
  • record    记录字段
  • debug     在浏览器中打开当前条目

示例:
  # 执行当前目录下的 knapsack.json
  knapsack run

  # 指定旅程文件并生成JSON报告
  knapsack run -j ./journeys/gallery.json --report

  # 附加自定义HTTP头部
  knapsack run -H "User-Agent: MyBot/1.0" -H "Accept-Language: zh-CN"

  # 只验证旅程文件
  knapsack validate -j ./knapsack.json

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 命令行参数覆盖配置文件
		level := logLevel
		if level == "" && verbose {
			level = "debug"
		}
		retries := -2
		if cmd.Flags().Changed("max-retries") {
			retries = maxRetries
		}
		config.MergeCLIFlags(level, retries, report)
		appConfig = config

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "执行旅程",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateFlags(journeyFile, maxRetries); err != nil {
			return err
		}

		journey, err := LoadJourney(journeyFile)
		if err != nil {
			return err
		}

		// 打印解析后的旅程
		data, err := journey.ToJSON()
		if err != nil {
			return fmt.Errorf("序列化旅程失败: %w", err)
		}
		fmt.Println(string(data))

		headerManager, err := core.NewHeaderManager(appConfig.Headers.File, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		// Ctrl+C 取消旅程
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := core.NewJourneyRunner(newRunnerOptions(appConfig, headerManager))

		result, runErr := runner.Execute(ctx, journey)
		if runErr != nil && ctx.Err() != nil {
			utils.Warnf("收到中断信号,旅程已停止: %v", runErr)
		}

		printSummary(os.Stdout, runner, result)

		if appConfig.Report.Enabled && runner.Task() != nil {
			reporter := utils.NewReporter(appConfig.Report.Dir)
			if _, err := reporter.GenerateReport(runner.Report(journey, result)); err != nil {
				utils.Warnf("⚠️  生成报告失败: %v", err)
			}
		}

		if runErr != nil {
			return fmt.Errorf("旅程执行失败: %w", runErr)
		}

		utils.Info("✨ 旅程完成!")
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "验证旅程文件和HTTP头部配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateFlags(journeyFile, maxRetries); err != nil {
			return err
		}

		journey, err := LoadJourney(journeyFile)
		if err != nil {
			return err
		}

		headerManager, err := core.NewHeaderManager(appConfig.Headers.File, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}
		if err := headerManager.LoadConfig(); err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		if err := headerManager.Validate(); err != nil {
			return fmt.Errorf("配置验证失败: %w", err)
		}

		fmt.Printf("✅ 旅程有效: %d 个起始URL, %d 个步骤\n", len(journey.Beginning), len(journey.Steps))
		for i, step := range journey.Steps {
			fmt.Printf("  %d. %s\n", i+1, step.Type)
		}

		// 显示合并后的头部(脱敏)
		safeHeaders := headerManager.GetSafeHeaders()
		fmt.Printf("当前有效的HTTP头部 (%d个):\n", len(safeHeaders))
		for name, value := range safeHeaders {
			fmt.Printf("  %s: %s\n", name, value)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("knapsack %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// newRunnerOptions 按配置组装旅程执行器的依赖
func newRunnerOptions(config *core.Config, headerManager *core.HeaderManager) core.RunnerOptions {
	browserConfig := config.BrowserSettings()

	var progress io.Writer
	if config.Obtain.Progress {
		progress = os.Stderr
	}

	return core.RunnerOptions{
		JourneyPath: journeyFile,
		Headers:     headerManager,
		NewTransport: func(h http.Header) crawlers.Transport {
			return crawlers.NewHTTPTransport(config.TransportConfig(h))
		},
		Cookies:   browser.NewLoginCookieProvider(browserConfig),
		Inspector: browser.NewInspector(browserConfig),
		Retry:     config.RetryConfig(),
		Progress:  progress,
	}
}

// printSummary 打印步骤统计和最终结果
func printSummary(w io.Writer, runner *core.JourneyRunner, result []string) {
	task := runner.Task()
	if task == nil {
		return
	}

	fmt.Fprintln(w, "\n==================================================")
	fmt.Fprintln(w, "📊 旅程统计")
	fmt.Fprintln(w, "==================================================")
	for _, s := range task.Steps {
		credentials := ""
		if s.UsedCredentials {
			credentials = " 🔐"
		}
		fmt.Fprintf(w, "  %d. %-9s %d -> %d (%.2f秒)%s\n", s.Index+1, s.Type, s.InputCount, s.OutputCount, s.Duration, credentials)
	}
	fmt.Fprintf(w, "✅ 结果数: %d\n", len(result))
	fmt.Fprintf(w, "💾 下载文件: %d\n", len(runner.ObtainedFiles()))
	fmt.Fprintf(w, "⏱️  总耗时: %.2f秒\n", task.Duration().Seconds())
	fmt.Fprintln(w, "==================================================")

	for _, item := range result {
		fmt.Fprintln(w, item)
	}
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "max-retries", -1, "最大重试次数,-1表示无限重试 (默认使用配置文件)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")

	// 旅程参数
	for _, cmd := range []*cobra.Command{runCmd, validateCmd} {
		cmd.Flags().StringVarP(&journeyFile, "journey", "j", DefaultJourneyFile, "旅程定义文件")
	}
	runCmd.Flags().BoolVar(&report, "report", false, "生成JSON报告")

	// 添加子命令
	rootCmd.AddCommand(runCmd, validateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
