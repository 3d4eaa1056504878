package sections

import (
	"strings"
	"testing"

	qerrors "github.com/FocuswithJustin/Quill/core/errors"
)

const reference = `# Mara Voss

Pilot, thirty-one.

## Appearance

Grey eyes.

### Scars

Left hand.

## History

Born on Ceres.

` + "```md\n## Not a heading\n```\n" + `
## History

Second pass.
## Café Society! ##
Regulars.
`

func TestIndex(t *testing.T) {
	doc, err := Index(reference, 2)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if doc.TopMatter != "# Mara Voss\n\nPilot, thirty-one.\n\n" {
		t.Errorf("TopMatter = %q", doc.TopMatter)
	}
	want := []struct{ name, slug string }{
		{"Appearance", "appearance"},
		{"History", "history"},
		{"History", "history-2"},
		{"Café Society!", "cafe-society"},
	}
	if len(doc.Sections) != len(want) {
		t.Fatalf("Sections = %v, want %d entries", doc.Sections, len(want))
	}
	for i, w := range want {
		if doc.Sections[i].Name != w.name || doc.Sections[i].Slug != w.slug {
			t.Errorf("Sections[%d] = %q/%q, want %q/%q", i, doc.Sections[i].Name, doc.Sections[i].Slug, w.name, w.slug)
		}
	}
	if doc.Sections[0].Line != 5 {
		t.Errorf("Sections[0].Line = %d, want 5", doc.Sections[0].Line)
	}
}

func TestSectionCompleteness(t *testing.T) {
	for _, level := range []int{1, 2, 3} {
		doc, err := Index(reference, level)
		if err != nil {
			t.Fatal(err)
		}
		parts, err := doc.FetchMany(doc.Slugs())
		if err != nil {
			t.Fatalf("FetchMany() error = %v", err)
		}
		if got := doc.TopMatter + strings.Join(parts, ""); got != reference {
			t.Errorf("level %d: reconstruction differs:\n%s", level, got)
		}
		if doc.Text() != reference {
			t.Errorf("level %d: Text() differs", level)
		}
	}
}

func TestFetch(t *testing.T) {
	doc, err := Index(reference, 2)
	if err != nil {
		t.Fatal(err)
	}
	got, err := doc.Fetch("appearance")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got != "## Appearance\n\nGrey eyes.\n\n### Scars\n\nLeft hand.\n\n" {
		t.Errorf("Fetch(appearance) = %q", got)
	}
	got, err = doc.Fetch("history")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "## Not a heading") {
		t.Errorf("fenced heading split the section: %q", got)
	}
	if got, _ := doc.Fetch("history-2"); got != "## History\n\nSecond pass.\n" {
		t.Errorf("Fetch(history-2) = %q", got)
	}
}

func TestFetchNotFound(t *testing.T) {
	_, err := Fetch(reference, 2, "eyes")
	if !qerrors.Is(err, qerrors.ErrSectionNotFound) {
		t.Fatalf("Fetch() error = %v, want section not found", err)
	}
	var se *qerrors.SectionNotFoundError
	if !qerrors.As(err, &se) {
		t.Fatalf("error is %T", err)
	}
	if got := strings.Join(se.Available, ","); got != "appearance,history,history-2,cafe-society" {
		t.Errorf("Available = %s", got)
	}
	if !strings.Contains(err.Error(), "history-2") {
		t.Errorf("error %q does not list slugs", err.Error())
	}

	doc, _ := Index(reference, 2)
	if _, err := doc.FetchMany([]string{"appearance", "nope"}); !qerrors.Is(err, qerrors.ErrSectionNotFound) {
		t.Errorf("FetchMany() error = %v", err)
	}
}

func TestIndexWithoutHeadings(t *testing.T) {
	text := "Just notes.\n\n#hashtag is not a heading\n"
	doc, err := Index(text, 2)
	if err != nil {
		t.Fatal(err)
	}
	if doc.TopMatter != text || len(doc.Sections) != 0 {
		t.Errorf("Index() = %q, %v; want full text and no sections", doc.TopMatter, doc.Sections)
	}
	if _, err := Index(text, 0); !qerrors.Is(err, qerrors.ErrInvalidInput) {
		t.Errorf("Index(level 0) error = %v", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Appearance", "appearance"},
		{"  Early  Life & Times ", "early-life-times"},
		{"Café Society!", "cafe-society"},
		{"Zoë's 2nd Ship", "zoe-s-2nd-ship"},
		{"--", "section"},
		{"", "section"},
		{"日本", "日本"},
		{"Ελληνικά", "ελληνικά"},
		{"中文 历史", "中文-历史"},
		{"हिन्दी", "हिन्दी"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNonLatinHeadingsKeepTheirSlugs(t *testing.T) {
	doc, err := Index("## 日本\n## Ελληνικά\n## 中文\n", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(doc.Slugs(), ","); got != "日本,ελληνικά,中文" {
		t.Errorf("Slugs() = %s", got)
	}
}

func TestUniqueSlugs(t *testing.T) {
	text := "## A\n## A\n## A 2\n## A\n"
	doc, err := Index(text, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(doc.Slugs(), ","); got != "a,a-2,a-2-2,a-3" {
		t.Errorf("Slugs() = %s", got)
	}
}
