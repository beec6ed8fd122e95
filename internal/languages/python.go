package languages

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

func extractPython(src []byte) ([]Function, error) {
	return extractWith(src, python.GetLanguage(), pythonVisitor{src: src})
}

type pythonVisitor struct {
	src []byte
}

func (v pythonVisitor) function(n *sitter.Node, parents []Parent) (*Function, bool) {
	if n.Type() != "function_definition" {
		return nil, false
	}
	name := field(n, "name", v.src)
	if name == "" {
		return nil, false
	}

	info := &PythonInfo{Decorators: v.decorators(n)}
	if first := n.Child(0); first != nil && first.Type() == "async" {
		info.Async = true
	}

	return &Function{
		Name:    name,
		Lang:    Python,
		Params:  v.params(n.ChildByFieldName("parameters")),
		Returns: field(n, "return_type", v.src),
		Parents: parents,
		Body:    bodyOf(n, v.src),
		Span:    spanOf(n),
		Python:  info,
	}, true
}

func (v pythonVisitor) parent(n *sitter.Node) (Parent, bool) {
	if n.Type() != "class_definition" {
		return Parent{}, false
	}
	p := containerParent(n, v.src, ParentClass, field(n, "name", v.src))
	p.Bottom = ""
	if sup := field(n, "superclasses", v.src); sup != "" {
		p.Superclass = strings.TrimSuffix(strings.TrimPrefix(sup, "("), ")")
	}
	p.Decorators = v.decorators(n)
	return p, true
}

// decorators reads the decorator list of a decorated_definition wrapping n.
func (v pythonVisitor) decorators(n *sitter.Node) []string {
	parent := n.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var out []string
	for _, c := range namedChildren(parent) {
		if c.Type() != "decorator" {
			continue
		}
		out = append(out, strings.TrimPrefix(normalize(content(c, v.src)), "@"))
	}
	return out
}

func (v pythonVisitor) params(list *sitter.Node) []Param {
	var out []Param
	for _, c := range namedChildren(list) {
		switch c.Type() {
		case "identifier":
			out = append(out, Param{Name: content(c, v.src)})
		case "typed_parameter":
			p := Param{Type: field(c, "type", v.src)}
			for _, inner := range namedChildren(c) {
				switch inner.Type() {
				case "identifier":
					p.Name = content(inner, v.src)
				case "list_splat_pattern":
					p.Name, p.Kind = splatName(content(inner, v.src)), ParamVariadic
				case "dictionary_splat_pattern":
					p.Name, p.Kind = splatName(content(inner, v.src)), ParamKwSplat
				}
				if p.Name != "" {
					break
				}
			}
			out = append(out, p)
		case "default_parameter":
			out = append(out, Param{
				Name:    field(c, "name", v.src),
				Default: field(c, "value", v.src),
			})
		case "typed_default_parameter":
			out = append(out, Param{
				Name:    field(c, "name", v.src),
				Type:    field(c, "type", v.src),
				Default: field(c, "value", v.src),
			})
		case "list_splat_pattern":
			out = append(out, Param{Name: splatName(content(c, v.src)), Kind: ParamVariadic})
		case "dictionary_splat_pattern":
			out = append(out, Param{Name: splatName(content(c, v.src)), Kind: ParamKwSplat})
		}
	}
	return out
}

func splatName(s string) string {
	return strings.TrimLeft(strings.TrimSpace(s), "*&")
}
