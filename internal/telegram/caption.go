package telegram

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// DefaultCaptionLimit is Telegram's caption limit for media messages.
const DefaultCaptionLimit = 1024

const truncationMarker = "..."

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))
	htmlTag  = regexp.MustCompile(`<[^>]*>`)
)

// FormatCaption strips markdown to plain text, collapses whitespace and
// truncates the result to limit code points, ending with "..." when cut.
func FormatCaption(caption string, limit int) string {
	if limit <= 0 {
		limit = DefaultCaptionLimit
	}
	plain := strings.Join(strings.Fields(stripMarkdown(caption)), " ")
	return truncate(plain, limit)
}

func stripMarkdown(caption string) string {
	source := []byte(caption)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			b.Write(resolve(v.Segment.Value(source)))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.CodeSpan:
			// Code spans are literal: no escapes or entities.
			for c := v.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					b.Write(t.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(source))
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(source))
				b.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			lines := v.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				writeHTMLText(&b, line.Value(source))
			}
			if v.HasClosure() {
				writeHTMLText(&b, v.ClosureLine.Value(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// resolve applies backslash escapes and character references the way an
// HTML renderer would.
func resolve(raw []byte) []byte {
	return util.UnescapePunctuations(util.ResolveEntityNames(util.ResolveNumericReferences(raw)))
}

func writeHTMLText(b *strings.Builder, line []byte) {
	b.Write(util.ResolveEntityNames(util.ResolveNumericReferences(htmlTag.ReplaceAll(line, nil))))
	b.WriteByte(' ')
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= len(truncationMarker) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(truncationMarker)]) + truncationMarker
}
