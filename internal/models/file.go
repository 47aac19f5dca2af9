package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

const (
	// MaxFileSize 单个响应体的默认上限 50MB
	MaxFileSize = 50 * 1024 * 1024
)

// ObtainedFile obtain步骤写入磁盘的文件
type ObtainedFile struct {
	// 标识信息
	ID       string `json:"id"`        // 文件唯一ID
	URL      string `json:"url"`       // 来源URL
	FilePath string `json:"file_path"` // 本地存储路径

	// 元数据
	Hash        string `json:"hash"`         // SHA-256哈希值
	Size        int64  `json:"size"`         // 文件大小(字节)
	ContentType string `json:"content_type"` // HTTP Content-Type

	DownloadedAt time.Time `json:"downloaded_at"`
}

// NewObtainedFile 根据写入的内容创建文件记录
func NewObtainedFile(url, filePath, contentType string, body []byte) *ObtainedFile {
	sum := sha256.Sum256(body)
	return &ObtainedFile{
		ID:           generateID(),
		URL:          url,
		FilePath:     filePath,
		Hash:         hex.EncodeToString(sum[:]),
		Size:         int64(len(body)),
		ContentType:  contentType,
		DownloadedAt: time.Now(),
	}
}

// ToJSON 序列化为JSON
func (f *ObtainedFile) ToJSON() ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}
