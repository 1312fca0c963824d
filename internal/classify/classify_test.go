package classify

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	c := Submission()

	tests := []struct {
		name       string
		text       string
		expected   Kind
		wantReason string
	}{
		{"explicit success", "學習日誌 新增完成", Success, ""},
		{"english success", "operation success", Success, ""},
		{"duplicate entry", "該日期已存在，無法新增", ExplicitFailure, "已存在"},
		{"generic failure", "儲存失敗", ExplicitFailure, "失敗"},
		{"positive wins over negative", "新增完成（前次錯誤已更正）", Success, ""},
		{"no markers at all", "歡迎使用本系統", Ambiguous, ""},
		{"empty page", "", Ambiguous, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			if got.Kind != tt.expected {
				t.Fatalf("Classify(%q).Kind = %v, expected %v", tt.text, got.Kind, tt.expected)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Classify(%q).Reason = %q, expected %q", tt.text, got.Reason, tt.wantReason)
			}
		})
	}
}

func TestLoginIgnoresEmptyAccountMarker(t *testing.T) {
	// An empty account string must not match every page.
	c := Login("")
	if c.Matches("some page without any auth markers") {
		t.Error("empty marker matched arbitrary text")
	}
	if !c.Matches("歡迎 王小明 [登出]") {
		t.Error("expected logout marker to match")
	}
}

func TestLoginMatchesAccountEcho(t *testing.T) {
	c := Login("s1234567")
	if !c.Matches("目前使用者: s1234567") {
		t.Error("expected account echo to classify as authenticated")
	}
}

func TestVisibleText(t *testing.T) {
	html := `<html><head><title>成功</title></head><body>
		<script>var ok = "新增完成";</script>
		<style>.err { color: red }</style>
		<div>歡迎使用</div>
	</body></html>`

	text := VisibleText(html)
	if want := "歡迎使用"; !strings.Contains(text, want) {
		t.Errorf("visible text missing %q: %q", want, text)
	}
	for _, hidden := range []string{"新增完成", "color: red", "成功"} {
		if strings.Contains(text, hidden) {
			t.Errorf("visible text leaked non-visible content %q", hidden)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{Success, "success"},
		{ExplicitFailure, "failure"},
		{Ambiguous, "ambiguous"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("Kind(%d).String() = %q, expected %q", tt.kind, got, tt.expected)
		}
	}
}
