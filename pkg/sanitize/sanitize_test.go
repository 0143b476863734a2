package sanitize

import (
	"strings"
	"testing"
)

func TestInputStripsDangerousCharacters(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`<script>alert('xss')</script>`, "scriptalert(xss)/script"},
		{`plain text`, "plain text"},
		{`"quoted"`, "quoted"},
		{``, ""},
		{`a<b>c'd"e`, "abcde"},
	}
	for _, tc := range cases {
		got := Input(tc.in)
		if got != tc.want {
			t.Fatalf("Input(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if strings.ContainsAny(got, `<>'"`) {
			t.Fatalf("Input(%q) left dangerous characters: %q", tc.in, got)
		}
	}
}

func TestInputIdempotent(t *testing.T) {
	inputs := []string{`<a href="x">'hi'</a>`, "no specials", `<<"">>`}
	for _, in := range inputs {
		once := Input(in)
		twice := Input(once)
		if once != twice {
			t.Fatalf("Input not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestHTMLEscapes(t *testing.T) {
	got := HTML(`<img src="x" onerror='alert(1)'>`)
	want := `&lt;img src=&quot;x&quot; onerror=&#039;alert(1)&#039;&gt;`
	if got != want {
		t.Fatalf("HTML escape mismatch:\n got %q\nwant %q", got, want)
	}
	if strings.ContainsAny(got, `<>`) {
		t.Fatalf("HTML output contains raw angle brackets: %q", got)
	}
}

func TestHTMLLeavesAmpersandAlone(t *testing.T) {
	once := HTML(`<b>`)
	if once != "&lt;b&gt;" {
		t.Fatalf("unexpected single escape: %q", once)
	}
	if HTML("a&b") != "a&b" {
		t.Fatalf("ampersand must pass through untouched")
	}
}
