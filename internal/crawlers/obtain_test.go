package crawlers

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestObtain_WritesFileWithExtension(t *testing.T) {
	transport := newFakeTransport()
	transport.page("http://x/file", "image/png", []byte("\x89PNG fake"))

	dir := filepath.Join(t.TempDir(), "out")
	urls, files := Obtain(context.Background(), newTestFetcher(transport), dir, []string{"http://x/file"}, ObtainOptions{})

	if !reflect.DeepEqual(urls, []string{"http://x/file"}) {
		t.Errorf("Obtain() 应原样返回URL列表, 得到 %v", urls)
	}
	if len(files) != 1 {
		t.Fatalf("期望写入1个文件, 得到 %d", len(files))
	}

	target := filepath.Join(dir, "file.png")
	if files[0].FilePath != target {
		t.Errorf("FilePath = %s, want %s", files[0].FilePath, target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("读取下载文件失败: %v", err)
	}
	if string(data) != "\x89PNG fake" {
		t.Errorf("文件内容错误: %q", data)
	}
}

func TestObtain_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()

	first := newFakeTransport()
	first.page("http://x/file", "image/png", []byte("first"))
	Obtain(context.Background(), newTestFetcher(first), dir, []string{"http://x/file"}, ObtainOptions{})

	second := newFakeTransport()
	second.page("http://x/file", "image/png", []byte("second"))
	urls, files := Obtain(context.Background(), newTestFetcher(second), dir, []string{"http://x/file"}, ObtainOptions{})

	if len(urls) != 1 {
		t.Errorf("拒绝覆盖时URL仍应返回, 得到 %v", urls)
	}
	if len(files) != 0 {
		t.Errorf("第二次不应写入文件, 得到 %d", len(files))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("目录中应只有1个文件, 得到 %d", len(entries))
	}
	data, _ := os.ReadFile(filepath.Join(dir, "file.png"))
	if string(data) != "first" {
		t.Errorf("已存在的文件被修改: %q", data)
	}
}

func TestObtain_FailureIsolation(t *testing.T) {
	transport := newFakeTransport()
	transport.page("http://x/a.txt", "text/plain", []byte("a"))
	transport.errs["http://x/b.txt"] = errors.New("连接重置")
	transport.page("http://x/c.txt", "text/plain", []byte("c"))

	var progress bytes.Buffer
	dir := t.TempDir()
	urls, files := Obtain(context.Background(), newTestFetcher(transport), dir,
		[]string{"http://x/a.txt", "http://x/b.txt", "http://x/c.txt"}, ObtainOptions{Progress: &progress})

	if len(urls) != 3 {
		t.Errorf("Obtain() 应原样返回3个URL, 得到 %d", len(urls))
	}
	if len(files) != 2 {
		t.Fatalf("期望写入2个文件, 得到 %d", len(files))
	}
	if filepath.Base(files[1].FilePath) != "c.txt" {
		t.Errorf("第二个文件应为c.txt, 得到 %s", files[1].FilePath)
	}
	if progress.Len() == 0 {
		t.Error("应输出进度条")
	}
}
