package crawlers

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>" + r.Header.Get("Cookie") + "|" + r.Header.Get("X-Custom") + "</html>"))
	})
	mux.HandleFunc("/busy", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	})
	mux.HandleFunc("/br", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte("compressed"))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	})
	mux.HandleFunc("/backup.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		w.Write(gzipArchive)
	})
	mux.HandleFunc("/big.bin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(bytes.Repeat([]byte("x"), 100))
	})
	mux.HandleFunc("/stream.bin", func(w http.ResponseWriter, r *http.Request) {
		// 先Flush,响应以chunked发送,没有Content-Length
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(bytes.Repeat([]byte("x"), 50))
		w.(http.Flusher).Flush()
		w.Write(bytes.Repeat([]byte("x"), 50))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/new", http.StatusFound)
	})
	mux.HandleFunc("/docs/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><a href="next.html">next</a></html>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// gzipArchive 一个gzip压缩的文件,内容为 "tar payload"
var gzipArchive = func() []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("tar payload"))
	zw.Close()
	return buf.Bytes()
}()

func TestHTTPTransport_Fetch(t *testing.T) {
	server := newTestServer(t)

	headers := http.Header{}
	headers.Set("X-Custom", "v1")
	headers.Set("Cookie", "sid=abc")
	transport := NewHTTPTransport(HTTPTransportConfig{Timeout: 5 * time.Second, Headers: headers})

	t.Run("附加头部随请求发送", func(t *testing.T) {
		resp, err := transport.Fetch(context.Background(), server.URL+"/ok")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d", resp.StatusCode)
		}
		if string(resp.Body) != "<html>sid=abc|v1</html>" {
			t.Errorf("Body = %q", resp.Body)
		}
		if resp.ContentType() != "text/html" {
			t.Errorf("ContentType() = %q", resp.ContentType())
		}
	})

	t.Run("503返回可重试错误", func(t *testing.T) {
		_, err := transport.Fetch(context.Background(), server.URL+"/busy")
		if !errors.Is(err, ErrTransientStatus) {
			t.Errorf("期望 ErrTransientStatus, 得到 %v", err)
		}
	})

	t.Run("404作为正常响应返回", func(t *testing.T) {
		resp, err := transport.Fetch(context.Background(), server.URL+"/missing")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("brotli响应被解码", func(t *testing.T) {
		resp, err := transport.Fetch(context.Background(), server.URL+"/br")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(resp.Body) != "compressed" {
			t.Errorf("Body = %q", resp.Body)
		}
	})

	t.Run("连接失败返回错误", func(t *testing.T) {
		if _, err := transport.Fetch(context.Background(), "http://127.0.0.1:1/closed"); err == nil {
			t.Error("期望连接错误")
		}
	})

	t.Run("ctx已取消", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := transport.Fetch(ctx, server.URL+"/ok"); !errors.Is(err, context.Canceled) {
			t.Errorf("期望 context.Canceled, 得到 %v", err)
		}
	})
}

func TestHTTPTransport_HeadersCopy(t *testing.T) {
	headers := http.Header{"X-A": []string{"1"}}
	transport := NewHTTPTransport(HTTPTransportConfig{Headers: headers})

	headers.Set("X-A", "changed")
	transport.Headers().Set("X-A", "changed")

	if transport.Headers().Get("X-A") != "1" {
		t.Error("传输层应持有头部副本")
	}
}

func TestFetcher_RetriesTransientErrors(t *testing.T) {
	recordSleeps(t)

	transport := newFakeTransport()
	transport.errs["http://a/busy"] = ErrTransientStatus

	fetcher := NewFetcher(transport, RetryConfig{InitialDelay: time.Millisecond, MaxRetries: 2, BackoffFactor: 2})
	if _, ok := fetcher.Fetch(context.Background(), "http://a/busy"); ok {
		t.Error("重试耗尽应返回false")
	}
	if n := transport.count("http://a/busy"); n != 3 {
		t.Errorf("请求次数 = %d, want 3", n)
	}
}

func TestObtain_KeepsGzipArchiveBytes(t *testing.T) {
	server := newTestServer(t)
	transport := NewHTTPTransport(HTTPTransportConfig{Timeout: 5 * time.Second})

	dir := t.TempDir()
	_, files := Obtain(context.Background(), newTestFetcher(transport), dir, []string{server.URL + "/backup.tar.gz"}, ObtainOptions{})
	if len(files) != 1 {
		t.Fatalf("期望写入1个文件, 得到 %d", len(files))
	}

	data, err := os.ReadFile(filepath.Join(dir, "backup.tar.gz"))
	if err != nil {
		t.Fatalf("读取下载文件失败: %v", err)
	}
	if !bytes.Equal(data, gzipArchive) {
		t.Errorf("文件应与服务器发送的字节一致: 得到 %d 字节 %q", len(data), data)
	}
}

func TestHTTPTransport_TruncatedBody(t *testing.T) {
	server := newTestServer(t)
	transport := NewHTTPTransport(HTTPTransportConfig{Timeout: 5 * time.Second, MaxBodySize: 16})

	tests := []struct {
		name string
		path string
	}{
		{"Content-Length超过上限", "/big.bin"},
		{"没有Content-Length时读满上限", "/stream.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transport.Fetch(context.Background(), server.URL+tt.path)
			if !errors.Is(err, ErrBodyTruncated) {
				t.Fatalf("期望 ErrBodyTruncated, 得到 %v", err)
			}
			if !IsPermanent(err) {
				t.Error("截断错误不应重试")
			}
		})
	}

	t.Run("上限内的响应正常返回", func(t *testing.T) {
		resp, err := transport.Fetch(context.Background(), server.URL+"/missing")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d", resp.StatusCode)
		}
	})
}

func TestObtain_SkipsTruncatedBody(t *testing.T) {
	delays := recordSleeps(t)
	server := newTestServer(t)
	transport := NewHTTPTransport(HTTPTransportConfig{Timeout: 5 * time.Second, MaxBodySize: 16})
	fetcher := NewFetcher(transport, RetryConfig{InitialDelay: time.Millisecond, MaxRetries: -1, BackoffFactor: 2})

	dir := t.TempDir()
	urls, files := Obtain(context.Background(), fetcher, dir, []string{server.URL + "/big.bin"}, ObtainOptions{})

	if len(urls) != 1 {
		t.Errorf("URL列表应原样返回, 得到 %v", urls)
	}
	if len(files) != 0 {
		t.Errorf("截断的响应不应写入文件, 得到 %d", len(files))
	}
	if len(*delays) != 0 {
		t.Errorf("截断错误不应等待重试: %v", *delays)
	}
	if _, err := os.Stat(filepath.Join(dir, "big.bin")); !os.IsNotExist(err) {
		t.Errorf("不应存在部分文件: %v", err)
	}
}

func TestHTTPTransport_Redirect(t *testing.T) {
	server := newTestServer(t)
	transport := NewHTTPTransport(HTTPTransportConfig{Timeout: 5 * time.Second})

	resp, err := transport.Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.URL != server.URL+"/old" {
		t.Errorf("URL = %s, 应为请求的URL", resp.URL)
	}
	if resp.FinalURL != server.URL+"/docs/new" {
		t.Errorf("FinalURL = %s", resp.FinalURL)
	}

	// 相对链接按请求的URL解析
	got := Extract(context.Background(), newTestFetcher(transport), []string{server.URL + "/old"}, "//a/@href")
	want := []string{server.URL + "/next.html"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
	if strings.Contains(strings.Join(got, ""), "/docs/") {
		t.Error("不应按重定向目标解析")
	}
}
