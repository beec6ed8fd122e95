package languages

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

func extractGo(src []byte) ([]Function, error) {
	return extractWith(src, golang.GetLanguage(), goVisitor{src: src})
}

type goVisitor struct {
	src []byte
}

func (v goVisitor) function(n *sitter.Node, parents []Parent) (*Function, bool) {
	switch n.Type() {
	case "function_declaration", "method_declaration":
	default:
		return nil, false
	}
	name := field(n, "name", v.src)
	if name == "" {
		return nil, false
	}

	info := &GoInfo{}
	for _, tp := range namedChildren(n.ChildByFieldName("type_parameters")) {
		info.TypeParams = append(info.TypeParams, normalize(content(tp, v.src)))
	}

	if recv := n.ChildByFieldName("receiver"); recv != nil {
		params := v.params(recv)
		if len(params) > 0 {
			info.ReceiverName = params[0].Name
			info.Receiver = receiverType(params[0].Type)
		}
		if info.Receiver != "" {
			parents = appendParent(parents, Parent{Kind: ParentReceiver, Name: info.Receiver})
		}
	}

	returns := ""
	if res := n.ChildByFieldName("result"); res != nil {
		returns = normalize(content(res, v.src))
		if res.Type() == "parameter_list" {
			for _, p := range v.params(res) {
				info.Results = append(info.Results, p.Type)
			}
		} else {
			info.Results = []string{returns}
		}
	}

	return &Function{
		Name:    name,
		Lang:    Go,
		Params:  v.params(n.ChildByFieldName("parameters")),
		Returns: returns,
		Parents: parents,
		Body:    bodyOf(n, v.src),
		Span:    spanOf(n),
		Go:      info,
	}, true
}

// Go has no named nested functions or enclosing blocks.
func (v goVisitor) parent(*sitter.Node) (Parent, bool) {
	return Parent{}, false
}

// params expands grouped declarations such as "a, b int" into one Param per name.
func (v goVisitor) params(list *sitter.Node) []Param {
	var out []Param
	for _, c := range namedChildren(list) {
		switch c.Type() {
		case "parameter_declaration", "variadic_parameter_declaration":
			typ := field(c, "type", v.src)
			kind := ParamPositional
			if c.Type() == "variadic_parameter_declaration" {
				typ = "..." + typ
				kind = ParamVariadic
			}
			var names []string
			for _, id := range namedChildren(c) {
				if id.Type() == "identifier" {
					names = append(names, content(id, v.src))
				}
			}
			if len(names) == 0 {
				out = append(out, Param{Type: typ, Kind: kind})
				continue
			}
			for _, name := range names {
				out = append(out, Param{Name: name, Type: typ, Kind: kind})
			}
		}
	}
	return out
}

// receiverType strips pointers and type arguments: "*Stack[T]" becomes "Stack".
func receiverType(typ string) string {
	typ = strings.TrimLeft(typ, "*")
	if i := strings.IndexByte(typ, '['); i >= 0 {
		typ = typ[:i]
	}
	return typ
}
