package browser

import (
	"net/http"
	"reflect"
	"testing"

	"github.com/RecoveryAshes/knapsack/internal/models"
	"github.com/go-rod/rod/lib/proto"
)

func TestToCookies(t *testing.T) {
	input := []*proto.NetworkCookie{
		{Name: "sid", Value: "abc", Domain: "example.com"},
		nil,
		{Name: "lang", Value: "zh"},
	}

	got := toCookies(input)
	want := []models.Cookie{{Name: "sid", Value: "abc"}, {Name: "lang", Value: "zh"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("toCookies() = %v, want %v", got, want)
	}
}

func TestToCookies_Empty(t *testing.T) {
	got := toCookies(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("空输入应返回空切片, 得到 %v", got)
	}
}

func TestHeaderPairs(t *testing.T) {
	headers := http.Header{}
	headers.Set("User-Agent", "knapsack")
	headers.Set("Cookie", "sid=abc; lang=zh")
	headers.Add("Accept", "text/html")
	headers.Add("Accept", "application/xml")

	got := headerPairs(headers)
	want := []string{
		"Accept", "text/html, application/xml",
		"Cookie", "sid=abc; lang=zh",
		"User-Agent", "knapsack",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("headerPairs() = %v, want %v", got, want)
	}
}

func TestNewInspector_Defaults(t *testing.T) {
	inspector := NewInspector(Config{})
	if inspector.config.DebugMaxPages != DefaultConfig().DebugMaxPages {
		t.Errorf("DebugMaxPages = %d, want %d", inspector.config.DebugMaxPages, DefaultConfig().DebugMaxPages)
	}
	if inspector.config.PollInterval <= 0 {
		t.Error("PollInterval 应使用默认值")
	}
}
