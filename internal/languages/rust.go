package languages

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

func extractRust(src []byte) ([]Function, error) {
	return extractWith(src, rust.GetLanguage(), rustVisitor{src: src})
}

type rustVisitor struct {
	src []byte
}

func (v rustVisitor) function(n *sitter.Node, parents []Parent) (*Function, bool) {
	switch n.Type() {
	case "function_item", "function_signature_item":
	default:
		return nil, false
	}
	name := field(n, "name", v.src)
	if name == "" {
		return nil, false
	}

	info := &RustInfo{Block: rustBlock(parents)}
	for _, c := range children(n) {
		switch c.Type() {
		case "visibility_modifier":
			info.Visibility = normalize(content(c, v.src))
		case "function_modifiers":
			mods := content(c, v.src)
			info.Async = strings.Contains(mods, "async")
			info.Unsafe = strings.Contains(mods, "unsafe")
			info.Const = strings.Contains(mods, "const")
		}
	}
	for _, tp := range namedChildren(n.ChildByFieldName("type_parameters")) {
		text := normalize(content(tp, v.src))
		if tp.Type() == "lifetime" || strings.HasPrefix(text, "'") {
			info.Lifetimes = append(info.Lifetimes, text)
			continue
		}
		info.Generics = append(info.Generics, text)
	}
	info.Attributes, info.DocComments = v.leadingItems(n)

	return &Function{
		Name:    name,
		Lang:    Rust,
		Params:  v.params(n.ChildByFieldName("parameters")),
		Returns: field(n, "return_type", v.src),
		Parents: parents,
		Body:    bodyOf(n, v.src),
		Span:    spanOf(n),
		Rust:    info,
	}, true
}

// leadingItems collects the attributes and doc comments directly above n.
func (v rustVisitor) leadingItems(n *sitter.Node) (attrs, docs []string) {
	for s := n.PrevNamedSibling(); s != nil; s = s.PrevNamedSibling() {
		text := content(s, v.src)
		switch s.Type() {
		case "attribute_item":
			attrs = append([]string{normalize(text)}, attrs...)
		case "line_comment":
			if !strings.HasPrefix(text, "///") {
				continue
			}
			docs = append([]string{strings.TrimSpace(strings.TrimPrefix(text, "///"))}, docs...)
		case "block_comment":
			if !strings.HasPrefix(text, "/**") {
				continue
			}
			doc := strings.TrimSuffix(strings.TrimPrefix(text, "/**"), "*/")
			docs = append([]string{strings.TrimSpace(doc)}, docs...)
		default:
			return attrs, docs
		}
	}
	return attrs, docs
}

func (v rustVisitor) params(list *sitter.Node) []Param {
	var out []Param
	for _, c := range namedChildren(list) {
		switch c.Type() {
		case "parameter":
			out = append(out, Param{
				Name: field(c, "pattern", v.src),
				Type: field(c, "type", v.src),
			})
		case "self_parameter":
			out = append(out, Param{Name: normalize(content(c, v.src)), Kind: ParamSelf})
		case "variadic_parameter":
			out = append(out, Param{Name: "...", Kind: ParamVariadic})
		}
	}
	return out
}

func (v rustVisitor) parent(n *sitter.Node) (Parent, bool) {
	switch n.Type() {
	case "impl_item":
		p := containerParent(n, v.src, ParentImpl, field(n, "type", v.src))
		p.Trait = field(n, "trait", v.src)
		return p, true
	case "trait_item":
		return containerParent(n, v.src, ParentTrait, field(n, "name", v.src)), true
	case "foreign_mod_item":
		name := "extern"
		for _, c := range children(n) {
			if c.Type() == "extern_modifier" {
				name = normalize(content(c, v.src))
			}
		}
		return containerParent(n, v.src, ParentExtern, name), true
	case "mod_item":
		if n.ChildByFieldName("body") == nil {
			return Parent{}, false
		}
		return containerParent(n, v.src, ParentModule, field(n, "name", v.src)), true
	}
	return Parent{}, false
}

func rustBlock(parents []Parent) *RustBlock {
	for i := len(parents) - 1; i >= 0; i-- {
		p := parents[i]
		switch p.Kind {
		case ParentImpl:
			return &RustBlock{Kind: BlockImpl, Name: p.Name, Trait: p.Trait}
		case ParentTrait:
			return &RustBlock{Kind: BlockTrait, Name: p.Name}
		case ParentExtern:
			return &RustBlock{Kind: BlockExtern, Name: p.Name}
		case ParentFunction, ParentModule:
			return nil
		}
	}
	return nil
}
