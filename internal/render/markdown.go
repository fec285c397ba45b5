// Package render formats reminder notes for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer turns markdown into terminal text.
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}

// GlamourRenderer renders with glamour using a fixed style.
type GlamourRenderer struct {
	tr *glamour.TermRenderer
}

// NewGlamourRenderer builds a renderer for style ("dark", "light", "notty",
// "ascii") wrapping at width columns; width <= 0 disables wrapping.
func NewGlamourRenderer(style string, width int) (*GlamourRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle(style)}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &GlamourRenderer{tr: tr}, nil
}

func (g *GlamourRenderer) Render(markdown string) (string, error) {
	out, err := g.tr.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

// FallbackRenderer returns the markdown unchanged.
type FallbackRenderer struct{}

func (FallbackRenderer) Render(markdown string) (string, error) {
	return strings.TrimSpace(markdown), nil
}

// StyleFor picks the glamour style for a detected terminal theme. Output
// that is not a terminal gets the plain "notty" style.
func StyleFor(theme string, terminal bool) string {
	if !terminal {
		return "notty"
	}
	if theme == "light" {
		return "light"
	}
	return "dark"
}

// New returns a glamour renderer, or the plain fallback when glamour cannot
// be initialized.
func New(style string, width int) MarkdownRenderer {
	g, err := NewGlamourRenderer(style, width)
	if err != nil {
		return FallbackRenderer{}
	}
	return g
}
