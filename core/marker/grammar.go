package marker

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// markerBody is the participle grammar for the text between "<!--" and "-->".
// Examples: "beat:b1 [written] | Arrival", "summary: Mara lands.",
// "@note(ed): tighten", "@flag", "/chapter"
//
//nolint:govet // participle grammar tags are not standard struct tags
type markerBody struct {
	Beat       *beatBody  `  @@`
	Close      bool       `| @Close`
	Annotation *noteBody  `| @@`
	Keyed      *keyedBody `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type beatBody struct {
	ID     string  `"beat:" @Word`
	Status *string `@Status?`
	Label  *string `@Text?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type noteBody struct {
	Type    string  `"@" @Word`
	Author  *string `@Author?`
	Message *string `@Text?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type keyedBody struct {
	Key  string `@Word`
	Text string `@Text`
}

// markerLexer defines tokens for comment bodies.
// Order matters: "beat:" and "/chapter" must win over Word, and Text swallows
// the free-form remainder (label after "|", message or summary after ":").
var markerLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Beat", Pattern: `beat:`},
	{Name: "Close", Pattern: `/chapter\b`},
	{Name: "At", Pattern: `@`},
	{Name: "Status", Pattern: `\[[^\]\r\n]*\]`},
	{Name: "Author", Pattern: `\([^)\r\n]*\)`},
	{Name: "Text", Pattern: `[|:][\s\S]*`},
	{Name: "Word", Pattern: `[^\s\[\]()|:@]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// markerParser is the participle parser for comment bodies.
var markerParser = participle.MustBuild[markerBody](
	participle.Lexer(markerLexer),
	participle.Elide("Whitespace"),
)

// keyed comment names
const (
	keySummary         = "summary"
	keyChapterSummary  = "chapter-summary"
	keyBeatSummary     = "beat-summary"
	keyChapterSynopsis = "chapter-synopsis"
)

// bodyClass is the outcome of classifying one comment body.
type bodyClass int

const (
	classPlain bodyClass = iota
	classToken
	classIssue
	classWarning
)

// classified carries a token or the reason the body is not one.
type classified struct {
	class   bodyClass
	token   Token
	warning WarningKind
	message string
}

// classifyBody decides what a comment body is. It fills only the semantic
// fields of the token; positions are the scanner's job.
func classifyBody(body string) classified {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return classified{class: classPlain}
	}

	parsed, err := markerParser.ParseString("", trimmed)
	if err != nil {
		switch {
		case strings.HasPrefix(trimmed, "beat:"):
			return classified{class: classIssue, message: fmt.Sprintf("malformed beat marker %q", trimmed)}
		case strings.HasPrefix(trimmed, "@"):
			return classified{class: classWarning, warning: MalformedAnnotation,
				message: fmt.Sprintf("cannot parse annotation %q", shorten(trimmed))}
		default:
			return classified{class: classPlain}
		}
	}

	switch {
	case parsed.Beat != nil:
		return classifyBeat(parsed.Beat, trimmed)
	case parsed.Close:
		return classified{class: classToken, token: Token{Kind: KindClose}}
	case parsed.Annotation != nil:
		return classifyNote(parsed.Annotation, trimmed)
	case parsed.Keyed != nil:
		return classifyKeyed(parsed.Keyed)
	}
	return classified{class: classPlain}
}

func classifyBeat(b *beatBody, trimmed string) classified {
	tok := Token{Kind: KindBlockOpen, ID: b.ID}
	if b.Status != nil {
		raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(*b.Status, "["), "]"))
		st, err := ParseStatus(raw)
		if err != nil {
			return classified{class: classIssue, message: fmt.Sprintf("beat %s: %v", b.ID, err)}
		}
		tok.Status = st
	}
	if b.Label != nil {
		if !strings.HasPrefix(*b.Label, "|") {
			return classified{class: classIssue, message: fmt.Sprintf("malformed beat marker %q: label must follow \"|\"", trimmed)}
		}
		tok.Label = Normalize((*b.Label)[1:])
	}
	return classified{class: classToken, token: tok}
}

func classifyNote(n *noteBody, trimmed string) classified {
	typ := AnnotationType(n.Type)
	if !typ.IsValid() {
		return classified{class: classWarning, warning: UnknownAnnotationType,
			message: fmt.Sprintf("unknown annotation type %q", n.Type)}
	}
	tok := Token{Kind: KindAnnotation, Type: typ}
	if n.Author != nil {
		tok.Author = Normalize(strings.TrimSuffix(strings.TrimPrefix(*n.Author, "("), ")"))
	}
	if n.Message != nil {
		if !strings.HasPrefix(*n.Message, ":") {
			return classified{class: classWarning, warning: MalformedAnnotation,
				message: fmt.Sprintf("annotation message must follow \":\" in %q", shorten(trimmed))}
		}
		tok.Text = Normalize((*n.Message)[1:])
	}
	return classified{class: classToken, token: tok}
}

func classifyKeyed(k *keyedBody) classified {
	if !strings.HasPrefix(k.Text, ":") {
		return classified{class: classPlain}
	}
	text := Normalize(k.Text[1:])
	var kind Kind
	switch k.Key {
	case keySummary:
		kind = KindBlockSummary
	case keyChapterSummary:
		kind = KindDocSummary
	case keyBeatSummary:
		kind = KindLegacyBlockSummary
	case keyChapterSynopsis:
		kind = KindLegacyDocSummary
	default:
		return classified{class: classPlain}
	}
	return classified{class: classToken, token: Token{Kind: kind, Text: text}}
}

func shorten(s string) string {
	s = Normalize(s)
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
