package crawlers

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// defaultFileName URL路径最后一段为空时使用的文件名
const defaultFileName = "index"

// ObtainFileName 根据URL和Content-Type生成本地文件名
//
// 文件名取URL路径的最后一段,为空时使用"index";
// 没有扩展名时按Content-Type补充,无法映射时不加扩展名。
func ObtainFileName(rawURL, contentType string) string {
	name := defaultFileName
	if u, err := url.Parse(rawURL); err == nil {
		segment := u.Path
		if idx := strings.LastIndex(segment, "/"); idx >= 0 {
			segment = segment[idx+1:]
		}
		if segment != "" && segment != "." && segment != ".." {
			name = segment
		}
	}

	if path.Ext(name) == "" {
		name += extensionForContentType(contentType)
	}
	return name
}

// extensionForContentType 将Content-Type映射为文件扩展名(带点)
func extensionForContentType(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
		return m.Extension()
	}

	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
