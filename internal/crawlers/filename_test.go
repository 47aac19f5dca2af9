package crawlers

import "testing"

func TestObtainFileName(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{"无扩展名按类型补充", "http://x/file", "image/png", "file.png"},
		{"带参数的类型", "http://x/doc", "application/pdf; charset=binary", "doc.pdf"},
		{"已有扩展名不变", "http://x/photo.jpg", "image/png", "photo.jpg"},
		{"查询参数不进入文件名", "http://x/a/report?id=1", "text/plain", "report.txt"},
		{"路径为空使用index", "http://x/", "text/html", "index.html"},
		{"未知类型不加扩展名", "http://x/blob", "application/x-knapsack-unknown", "blob"},
		{"没有Content-Type", "http://x/blob", "", "blob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ObtainFileName(tt.url, tt.contentType); got != tt.want {
				t.Errorf("ObtainFileName(%q, %q) = %q, want %q", tt.url, tt.contentType, got, tt.want)
			}
		})
	}
}
