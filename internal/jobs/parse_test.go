package jobs

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/go-cmp/cmp"
)

func TestParseFiles(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "main.typ", []string{"main.typ"}},
		{"ordered", "a.typ\nb.typ", []string{"a.typ", "b.typ"}},
		{"blank and whitespace lines are skipped", "\n  \na.typ\n", []string{"a.typ"}},
		{"surrounding whitespace is trimmed", "  docs/cv.typ\t\n", []string{"docs/cv.typ"}},
		{"crlf line endings", "a.typ\r\nb.typ\r\n", []string{"a.typ", "b.typ"}},
		{"lone carriage return", "a.typ\rb.typ", []string{"a.typ", "b.typ"}},
		{"unicode line separators", "a.typ\u2028b.typ\x85c.typ\fd.typ", []string{"a.typ", "b.typ", "c.typ", "d.typ"}},
		{"duplicates are kept", "a.typ\nb.typ\na.typ", []string{"a.typ", "b.typ", "a.typ"}},
		{"inner spaces survive", "my report.typ", []string{"my report.typ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseFiles(tt.input)); diff != "" {
				t.Errorf("ParseFiles(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"flag and value on separate lines", "--root\n.", []string{"--root", "."}},
		{"several flags", "--root\n.\n--font-path\nfonts", []string{"--root", ".", "--font-path", "fonts"}},
		{"blank lines dropped", "--root\n\n.\n", []string{"--root", "."}},
		{"value with spaces stays one token", "--font-path\n/usr/share/my fonts", []string{"--font-path", "/usr/share/my fonts"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseOptions(tt.input)); diff != "" {
				t.Errorf("ParseOptions(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseFiles_LongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024) + ".typ"
	got := ParseFiles("a.typ\n" + long)
	if len(got) != 2 || got[1] != long {
		t.Fatalf("long line was not preserved, got %d entries", len(got))
	}
}

// FuzzParseFiles checks that every parsed job is a single non-empty trimmed line, and
// that the table built from them never has more entries than there are jobs.
func FuzzParseFiles(f *testing.F) {
	f.Add([]byte("a.typ\nb.typ"))
	f.Add([]byte("\n  \na.typ\n"))
	f.Add([]byte("a.typ\rb.typ\u2028c.typ"))
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		input, err := consumer.GetString()
		if err != nil {
			return
		}

		files := ParseFiles(input)
		results := NewResults()
		for i, file := range files {
			if file == "" || strings.TrimSpace(file) != file {
				t.Fatalf("job %d is blank or untrimmed: %q", i, file)
			}
			if strings.IndexFunc(file, isLineBreak) >= 0 {
				t.Fatalf("job %d spans lines: %q", i, file)
			}
			results.Set(file, i%2 == 0)
		}
		if results.Len() > len(files) {
			t.Fatalf("table has %d entries for %d jobs", results.Len(), len(files))
		}
	})
}
