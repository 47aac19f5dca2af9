package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrFileExists 目标文件已存在
var ErrFileExists = errors.New("文件已存在")

// EnsureDir 创建目录(包括父目录),目录已存在时不报错
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败 [%s]: %w", dir, err)
	}
	return nil
}

// FileExists 检查路径是否存在
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteNewFile 写入新文件,文件已存在时返回 ErrFileExists 且不修改原文件
func WriteNewFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		return fmt.Errorf("创建文件失败 [%s]: %w", path, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("写入文件失败 [%s]: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("关闭文件失败 [%s]: %w", path, err)
	}
	return nil
}
