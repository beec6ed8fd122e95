package languages

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

func extractC(src []byte) ([]Function, error) {
	return extractWith(src, c.GetLanguage(), cVisitor{src: src})
}

type cVisitor struct {
	src []byte
}

func (v cVisitor) function(n *sitter.Node, parents []Parent) (*Function, bool) {
	if n.Type() != "function_definition" {
		return nil, false
	}

	decl, stars := unwrapDeclarator(n.ChildByFieldName("declarator"))
	if decl == nil || decl.Type() != "function_declarator" {
		return nil, false
	}
	name := field(decl, "declarator", v.src)
	if name == "" {
		return nil, false
	}

	info := &CInfo{}
	for _, ch := range children(n) {
		switch ch.Type() {
		case "storage_class_specifier", "type_qualifier":
			info.StorageClass = append(info.StorageClass, content(ch, v.src))
		}
	}

	params := v.params(decl.ChildByFieldName("parameters"))
	for _, p := range params {
		if p.Kind == ParamVariadic {
			info.Variadic = true
		}
	}

	return &Function{
		Name:    name,
		Lang:    C,
		Params:  params,
		Returns: field(n, "type", v.src) + stars,
		Parents: parents,
		Body:    bodyOf(n, v.src),
		Span:    spanOf(n),
		C:       info,
	}, true
}

// C has no nested definitions.
func (v cVisitor) parent(*sitter.Node) (Parent, bool) {
	return Parent{}, false
}

func (v cVisitor) params(list *sitter.Node) []Param {
	var out []Param
	for _, ch := range namedChildren(list) {
		switch ch.Type() {
		case "parameter_declaration":
			typ := field(ch, "type", v.src)
			for _, q := range children(ch) {
				if q.Type() == "type_qualifier" {
					typ = content(q, v.src) + " " + typ
				}
			}
			decl, stars := unwrapDeclarator(ch.ChildByFieldName("declarator"))
			if decl == nil && typ == "void" {
				continue
			}
			p := Param{Type: typ + stars}
			if decl != nil && strings.HasPrefix(decl.Type(), "abstract_") {
				p.Type += normalize(content(decl, v.src))
				decl = nil
			}
			if decl != nil {
				if decl.Type() == "array_declarator" {
					p.Type += "[]"
					decl, _ = unwrapDeclarator(decl.ChildByFieldName("declarator"))
				}
				if decl != nil {
					p.Name = normalize(content(decl, v.src))
				}
			}
			out = append(out, p)
		case "variadic_parameter":
			out = append(out, Param{Name: "...", Kind: ParamVariadic})
		}
	}
	return out
}

// unwrapDeclarator descends through pointer and parenthesized declarators,
// counting pointer levels.
func unwrapDeclarator(n *sitter.Node) (*sitter.Node, string) {
	var stars strings.Builder
	for n != nil {
		switch n.Type() {
		case "pointer_declarator":
			stars.WriteString("*")
		case "parenthesized_declarator", "attributed_declarator":
		default:
			return n, stars.String()
		}
		next := n.ChildByFieldName("declarator")
		if next == nil && n.NamedChildCount() > 0 {
			next = n.NamedChild(0)
		}
		n = next
	}
	return nil, stars.String()
}
