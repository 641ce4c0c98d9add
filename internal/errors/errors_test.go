package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "ambiguous authority",
			code:    "E201",
			wantMsg: "Ambiguous authority for component type",
			wantCat: CategoryConfig,
		},
		{
			name:    "binding live",
			code:    "E230",
			wantMsg: "Root component already attached to element",
			wantCat: CategoryMisuse,
		},
		{
			name:    "disconnected",
			code:    "E240",
			wantMsg: "Remote runtime disconnected",
			wantCat: CategoryTransport,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "flag %q is malformed", "param")
	if err.Message != `flag "param" is malformed` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Code != "" {
		t.Errorf("Code = %q, want empty", err.Code)
	}
}

func TestErrorString(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := New("E240").WithDetail("runtime client").Wrap(cause)

	got := err.Error()
	want := "E240: Remote runtime disconnected: runtime client: connection reset"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsByCategory(t *testing.T) {
	err := fmt.Errorf("dispose: %w", New("E240"))

	if !stderrors.Is(err, Kind(CategoryTransport)) {
		t.Error("expected transport category match")
	}
	if stderrors.Is(err, Kind(CategoryConfig)) {
		t.Error("unexpected config category match")
	}
	if !stderrors.Is(err, New("E240")) {
		t.Error("expected code match")
	}
	if stderrors.Is(err, New("E241")) {
		t.Error("unexpected match for different code")
	}
}

func TestIsCode(t *testing.T) {
	inner := New("E250").Wrap(stderrors.New("boom"))
	err := New("E242").Wrap(inner)

	if !Is(err, "E242") || !Is(err, "E250") {
		t.Error("Is should find both codes in the chain")
	}
	if Is(err, "E201") {
		t.Error("Is matched an absent code")
	}
	if CodeOf(err) != "E242" {
		t.Errorf("CodeOf = %q, want E242", CodeOf(err))
	}
	if CodeOf(stderrors.New("plain")) != "" {
		t.Error("CodeOf plain error should be empty")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E205") != nil {
		t.Error("FromError(nil) should be nil")
	}

	ve := New("E201")
	if FromError(ve, "E205") != ve {
		t.Error("FromError should return existing VangoError unchanged")
	}

	wrapped := FromError(stderrors.New("yaml: line 3"), "E205")
	if wrapped.Code != "E205" || wrapped.Wrapped == nil {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E201").
		WithDetail(`type "app.Counter" is declared for both server and client`).
		WithSuggestion("Keep exactly one runtime on the declaration")

	out := err.Format()
	for _, want := range []string{
		"ERROR E201: Ambiguous authority for component type",
		`type "app.Counter" is declared`,
		"Hint: Keep exactly one runtime",
		"https://vango.dev/docs/errors/E201",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}

	if got := err.FormatCompact(); !strings.HasPrefix(got, "E201: Ambiguous authority") {
		t.Errorf("FormatCompact() = %q", got)
	}
	if got := err.FormatJSON(); !strings.Contains(got, `"code":"E201"`) {
		t.Errorf("FormatJSON() = %q", got)
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	PrintError(&buf, fmt.Errorf("check: %w", New("E204").Wrap(stderrors.New("open vango-mixed.yaml"))))
	if !strings.Contains(buf.String(), "E204") || !strings.Contains(buf.String(), "Cause: open vango-mixed.yaml") {
		t.Errorf("PrintError output = %q", buf.String())
	}

	buf.Reset()
	PrintError(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("PrintError output = %q", buf.String())
	}
}

func TestRegistryComplete(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, ok := GetTemplate(code)
		if !ok {
			t.Fatalf("GetTemplate(%q) missing", code)
		}
		if tmpl.Category == "" || tmpl.Message == "" {
			t.Errorf("%s: incomplete template %+v", code, tmpl)
		}
		if !strings.HasSuffix(tmpl.DocURL, code) {
			t.Errorf("%s: DocURL %q does not end in code", code, tmpl.DocURL)
		}
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"", 10, nil},
		{"short", 10, []string{"short"}},
		{"one two three four", 9, []string{"one two", "three", "four"}},
		{"averyverylongword x", 5, []string{"averyverylongword", "x"}},
	}
	for _, tt := range tests {
		got := wrapText(tt.text, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestFormatJSONIncludesCause(t *testing.T) {
	got := New("E205").Wrap(stderrors.New("yaml: line 2")).FormatJSON()
	if !strings.Contains(got, `"cause":"yaml: line 2"`) || !strings.Contains(got, `"category":"config"`) {
		t.Errorf("FormatJSON() = %s", got)
	}
}
