package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// minErrorPageWidth is the narrowest wrap width the error page renders at.
const minErrorPageWidth = 24

// errorPage renders the error route as glamour markdown, keeping one renderer per wrap width.
type errorPage struct {
	width    int
	renderer *glamour.TermRenderer
}

// errorPageMarkdown builds the markdown body shown for one failure.
func errorPageMarkdown(err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	var b strings.Builder
	b.WriteString("# Unable to load the dashboard\n\n")
	fmt.Fprintf(&b, "```\n%s\n```\n\n", msg)
	if cause := errors.Unwrap(err); cause != nil && cause.Error() != msg {
		fmt.Fprintf(&b, "Caused by: `%s`\n\n", cause.Error())
	}
	b.WriteString("Press **r** to reload or **q** to quit.")
	return b.String()
}

// render returns the ANSI-styled page for err wrapped to width.
func (p *errorPage) render(err error, width int) string {
	body := errorPageMarkdown(err)
	wrapWidth := max(width, minErrorPageWidth)
	if p.renderer == nil || p.width != wrapWidth {
		renderer, rendErr := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if rendErr != nil {
			return body
		}
		p.renderer = renderer
		p.width = wrapWidth
	}
	rendered, rendErr := p.renderer.Render(body)
	if rendErr != nil {
		return body
	}
	return strings.TrimRight(rendered, "\n")
}
