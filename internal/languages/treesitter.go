package languages

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// visitor classifies syntax nodes for one grammar.
type visitor interface {
	function(n *sitter.Node, parents []Parent) (*Function, bool)
	parent(n *sitter.Node) (Parent, bool)
}

func parseTree(src []byte, lang *sitter.Language) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	// Parsing is never interrupted; callers cancel between files.
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return tree, nil
}

// extractWith parses src and walks the tree in source order.
func extractWith(src []byte, lang *sitter.Language, v visitor) ([]Function, error) {
	if len(bytes.TrimSpace(src)) == 0 {
		return nil, nil
	}
	tree, err := parseTree(src, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: empty tree", ErrParseFailure)
	}

	var out []Function
	var walk func(n *sitter.Node, parents []Parent)
	walk = func(n *sitter.Node, parents []Parent) {
		if fn, ok := v.function(n, parents); ok {
			out = append(out, *fn)
			parents = appendParent(parents, functionParent(fn, src))
		} else if p, ok := v.parent(n); ok {
			parents = appendParent(parents, p)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i), parents)
		}
	}
	walk(root, nil)

	if len(out) == 0 && root.Type() == "ERROR" {
		return nil, fmt.Errorf("%w: no recognizable syntax", ErrParseFailure)
	}
	return out, nil
}

func appendParent(parents []Parent, p Parent) []Parent {
	out := make([]Parent, len(parents), len(parents)+1)
	copy(out, parents)
	return append(out, p)
}

func functionParent(fn *Function, src []byte) Parent {
	p := Parent{
		Kind:    ParentFunction,
		Name:    fn.Name,
		Params:  fn.Params,
		Returns: fn.Returns,
		Top:     lineAt(src, fn.Span.StartLine),
		Span:    fn.Span,
	}
	if fn.Span.EndLine > fn.Span.StartLine && fn.Lang != Python {
		p.Bottom = lineAt(src, fn.Span.EndLine)
	}
	if fn.Python != nil {
		p.Decorators = fn.Python.Decorators
	}
	return p
}

func content(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

func field(n *sitter.Node, name string, src []byte) string {
	return normalize(content(n.ChildByFieldName(name), src))
}

func spanOf(n *sitter.Node) Span {
	return Span{
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
	}
}

// bodyOf returns the node text extended back to the start of its first line
// so indentation is preserved.
func bodyOf(n *sitter.Node, src []byte) string {
	start := int(n.StartByte())
	end := int(n.EndByte())
	if end > len(src) {
		end = len(src)
	}
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	return string(src[start:end])
}

// lineAt returns the trimmed-right text of a 1-based line.
func lineAt(src []byte, line int) string {
	if line < 1 {
		return ""
	}
	rest := src
	for i := 1; i < line; i++ {
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			return ""
		}
		rest = rest[idx+1:]
	}
	if idx := bytes.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimRight(string(rest), " \t\r")
}

func containerParent(n *sitter.Node, src []byte, kind ParentKind, name string) Parent {
	span := spanOf(n)
	p := Parent{
		Kind: kind,
		Name: name,
		Top:  lineAt(src, span.StartLine),
		Span: span,
	}
	if span.EndLine > span.StartLine {
		p.Bottom = lineAt(src, span.EndLine)
	}
	return p
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func children(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, n.Child(i))
	}
	return out
}
