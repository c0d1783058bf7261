package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
)

// templNode lets a templ component sit inside a gomponents tree.
type templNode struct {
	component templ.Component
}

// Render uses a background context since gomponents does not pass one.
func (n templNode) Render(w io.Writer) error {
	return n.component.Render(context.Background(), w)
}

// Templ adapts c to a gomponents node.
func Templ(c templ.Component) g.Node {
	return templNode{component: c}
}
