package label

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kwportal/igcse-tutor-bot/internal/logger"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  Further   Math. ", "further math"},
		{"Travel & Tourism!", "travel & tourism"},
		{"A-Level Physics (9702)", "a-level physics (9702)"},
		{"ＭＡＴＨ", "math"},
		{"Biology/Chemistry", "biology/chemistry"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSubject_AliasComplete(t *testing.T) {
	t.Parallel()

	c := New(nil)
	for alias, canonical := range SubjectAliases() {
		got, ok := c.Subject(alias)
		if !ok || got != canonical {
			t.Errorf("Subject(%q) = (%q, %v), want %q", alias, got, ok, canonical)
		}
		// Canonical names are fixed points.
		again, ok := c.Subject(canonical)
		if !ok || again != canonical {
			t.Errorf("Subject(%q) = (%q, %v), want itself", canonical, again, ok)
		}
	}
}

func TestSubject(t *testing.T) {
	t.Parallel()

	c := New(nil)
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"mathematics", "Math", true},
		{"Additional Math", "Math", true},
		{"MATH (Extended)", "Math", true},
		{"IGCSE Further Mathematics", "Math", true},
		{"English Literature (0475)", "English Literature", true},
		{"English as a Second Language", "English Language", true},
		{"ict", "ICT", true},
		{"cs", "Computer Science", true},
		{"PE", "Physical Education", true},
		{"humanities", "Humanities & Social Sciences", true},
		{"Travel and Tourism", "Travel & Tourism", true},
		{"Business Studies", "Business", true},
		{"ENLIT", "English Literature", true},
		{"HUM", "Humanities & Social Sciences", true},
		{"Chemistry", "Chemistry", true},
		{"Chemistry!!", "Chemistry", true},
		{"Arabic (First Language)", "Arabic", true},
		{"Astronomy", "", false},
		{"", "", false},
		{"schema", "", false}, // "em" only matches as a whole word
		{"Physics and Chemistry", "Physics", true},
		{"Bio / Chemistry", "Chemistry", true},
		{"Biology & Math", "Math", true},
		{"English Language and Literature", "English Literature", true},
	}
	for _, tt := range tests {
		got, ok := c.Subject(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Subject(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSubject_LogsMiss(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := New(logger.NewWithWriter("info", &buf))
	if _, ok := c.Subject("Underwater Basket Weaving"); ok {
		t.Fatal("expected a miss")
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"warning"`) || !strings.Contains(out, "Underwater Basket Weaving") {
		t.Errorf("expected warning log for miss, got %q", out)
	}
}

func TestBoard(t *testing.T) {
	t.Parallel()

	c := New(nil)
	tests := []struct {
		in   string
		want string
	}{
		{"Cambridge", BoardCambridge},
		{"CAIE", BoardCambridge},
		{"Cambridge International", BoardCambridge},
		{"cambridge   igcse", BoardCambridge},
		{"Not AQA", "not aqa"},
		{"Unknown   Board", "unknown   board"},
		{"Pearson Edexcel", BoardEdexcel},
		{"edexcel", BoardEdexcel},
		{"Oxford AQA", BoardOxfordAQA},
		{"OxfordAQA", BoardOxfordAQA},
		{"Oxford", BoardOxfordAQA},
		{"Unknown Board", "unknown board"},
		{"IB", "ib"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := c.Board(tt.in); got != tt.want {
			t.Errorf("Board(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCodes(t *testing.T) {
	t.Parallel()

	c := New(nil)
	for _, g := range SubjectGroups() {
		for _, opt := range g.Options {
			subject, ok := SubjectForCode(opt.Code)
			if !ok {
				t.Errorf("group %q option %q has no canonical subject", g.Title, opt.Code)
				continue
			}
			if got, ok := c.Subject(subject); !ok || got != subject {
				t.Errorf("code %s maps to %q which is not canonical (got %q)", opt.Code, subject, got)
			}
		}
	}

	for _, opt := range BoardOptions() {
		name := BoardForCode(opt.Code)
		if BoardDisplay(c.Board(name)) != name {
			t.Errorf("board code %s does not round trip through %q", opt.Code, name)
		}
	}
	if BoardForCode("X") != "X" {
		t.Error("unknown board code should pass through")
	}
	if got := SubjectsForCodes([]string{"PHY", "??", "MTH"}); strings.Join(got, ",") != "Physics,Math" {
		t.Errorf("SubjectsForCodes() = %v", got)
	}
}
