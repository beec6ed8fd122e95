package languages

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"
)

func extractRuby(src []byte) ([]Function, error) {
	return extractWith(src, ruby.GetLanguage(), rubyVisitor{src: src})
}

type rubyVisitor struct {
	src []byte
}

func (v rubyVisitor) function(n *sitter.Node, parents []Parent) (*Function, bool) {
	info := &RubyInfo{}
	switch n.Type() {
	case "method":
	case "singleton_method":
		info.Singleton = true
		info.Receiver = field(n, "object", v.src)
	default:
		return nil, false
	}
	name := field(n, "name", v.src)
	if name == "" {
		return nil, false
	}

	return &Function{
		Name:    name,
		Lang:    Ruby,
		Params:  v.params(n.ChildByFieldName("parameters")),
		Parents: parents,
		Body:    bodyOf(n, v.src),
		Span:    spanOf(n),
		Ruby:    info,
	}, true
}

func (v rubyVisitor) parent(n *sitter.Node) (Parent, bool) {
	switch n.Type() {
	case "class":
		p := containerParent(n, v.src, ParentClass, field(n, "name", v.src))
		if sup := field(n, "superclass", v.src); sup != "" {
			p.Superclass = strings.TrimSpace(strings.TrimPrefix(sup, "<"))
		}
		return p, true
	case "module":
		return containerParent(n, v.src, ParentModule, field(n, "name", v.src)), true
	case "singleton_class":
		return containerParent(n, v.src, ParentClass, field(n, "value", v.src)), true
	}
	return Parent{}, false
}

func (v rubyVisitor) params(list *sitter.Node) []Param {
	var out []Param
	for _, c := range namedChildren(list) {
		switch c.Type() {
		case "identifier":
			out = append(out, Param{Name: content(c, v.src)})
		case "optional_parameter":
			out = append(out, Param{Name: field(c, "name", v.src), Default: field(c, "value", v.src)})
		case "keyword_parameter":
			out = append(out, Param{Name: field(c, "name", v.src), Default: field(c, "value", v.src), Kind: ParamKeyword})
		case "splat_parameter":
			out = append(out, Param{Name: field(c, "name", v.src), Kind: ParamVariadic})
		case "hash_splat_parameter":
			out = append(out, Param{Name: field(c, "name", v.src), Kind: ParamKwSplat})
		case "block_parameter":
			out = append(out, Param{Name: field(c, "name", v.src), Kind: ParamBlock})
		case "destructured_parameter", "forward_parameter":
			out = append(out, Param{Name: normalize(content(c, v.src))})
		}
	}
	return out
}
