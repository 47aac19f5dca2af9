package crawlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/RecoveryAshes/knapsack/internal/models"
	"github.com/RecoveryAshes/knapsack/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// ObtainOptions obtain步骤的可选项
type ObtainOptions struct {
	// Progress 非nil时在此输出进度条
	Progress io.Writer
}

// Obtain 下载每个URL的内容到targetDirectory
//
// 返回值中的URL列表与输入相同,同时返回实际写入的文件记录。
// 单个URL失败只记录日志并跳过;已存在的文件不会被覆盖。
func Obtain(ctx context.Context, fetcher *Fetcher, targetDirectory string, itemURLs []string, opts ObtainOptions) ([]string, []*models.ObtainedFile) {
	files := make([]*models.ObtainedFile, 0, len(itemURLs))

	if err := utils.EnsureDir(targetDirectory); err != nil {
		utils.Errorf("❌ %v", err)
		return itemURLs, files
	}

	var progress *progressbar.ProgressBar
	if opts.Progress != nil && len(itemURLs) > 0 {
		progress = utils.NewProgressBar(len(itemURLs), "下载中", opts.Progress)
	}

	for _, itemURL := range itemURLs {
		if ctx.Err() != nil {
			break
		}

		file, err := obtainOne(ctx, fetcher, targetDirectory, itemURL)
		switch {
		case err == nil:
			utils.Infof("💾 已保存: %s -> %s (%d bytes)", itemURL, file.FilePath, file.Size)
			files = append(files, file)
		case errors.Is(err, utils.ErrFileExists):
			utils.Warnf("⏭️  拒绝覆盖已存在的文件 [%s]: %v", itemURL, err)
		case errors.Is(err, errNoResponse):
			// 重试耗尽,Fetcher已记录
		default:
			utils.Warnf("⚠️  下载失败,跳过 [%s]: %v", itemURL, err)
		}

		if progress != nil {
			_ = progress.Add(1)
		}
	}

	if progress != nil {
		_ = progress.Finish()
	}

	return itemURLs, files
}

var errNoResponse = errors.New("没有响应")

func obtainOne(ctx context.Context, fetcher *Fetcher, targetDirectory, itemURL string) (file *models.ObtainedFile, err error) {
	defer func() {
		if r := recover(); r != nil {
			file, err = nil, fmt.Errorf("下载panic: %v", r)
		}
	}()

	resp, ok := fetcher.Fetch(ctx, itemURL)
	if !ok {
		return nil, errNoResponse
	}

	contentType := resp.ContentType()
	target := filepath.Join(targetDirectory, ObtainFileName(itemURL, contentType))

	if err := utils.WriteNewFile(target, resp.Body); err != nil {
		return nil, err
	}
	return models.NewObtainedFile(itemURL, target, contentType, resp.Body), nil
}
