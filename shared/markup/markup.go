// Package markup cleans free text written by moderators and members.
package markup

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type Processor struct {
	md     goldmark.Markdown
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func New() *Processor {
	ugc := bluemonday.UGCPolicy()
	ugc.RequireNoFollowOnLinks(true)
	ugc.AddTargetBlankToFullyQualifiedLinks(true)

	return &Processor{
		// goldmark escapes raw HTML unless WithUnsafe is given.
		md:     goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify)),
		ugc:    ugc,
		strict: bluemonday.StrictPolicy(),
	}
}

// PlainText strips every tag from s and trims it. Entities are decoded so the stored
// value reads as typed.
func (p *Processor) PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(p.strict.Sanitize(s)))
}

// PlainTextPtr is PlainText for optional fields.
func (p *Processor) PlainTextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := p.PlainText(*s)
	return &out
}

// RenderNarrative turns a markdown narrative into HTML that is safe to embed.
func (p *Processor) RenderNarrative(markdown string) string {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(markdown), &buf); err != nil {
		return html.EscapeString(markdown)
	}
	return strings.TrimSpace(p.ugc.Sanitize(buf.String()))
}
