package languages

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter is a predicate over functions of one language. A filter never
// matches a function of another language.
type Filter interface {
	Language() Language
	Matches(fn *Function) bool
	String() string
}

type RustAttr string

const (
	RustInBlock     RustAttr = "block"
	RustBlockName   RustAttr = "block-name"
	RustAttribute   RustAttr = "attribute"
	RustGeneric     RustAttr = "generic"
	RustLifetime    RustAttr = "lifetime"
	RustReturnType  RustAttr = "returns"
	RustParameter   RustAttr = "parameter"
	RustParamType   RustAttr = "parameter-type"
	RustVisibility  RustAttr = "visibility"
	RustDocContains RustAttr = "doc"
	RustAsync       RustAttr = "async"
	RustUnsafe      RustAttr = "unsafe"
)

type RustFilter struct {
	Attr  RustAttr
	Value string
}

func (f RustFilter) Language() Language { return Rust }

func (f RustFilter) String() string { return formatFilter(Rust, string(f.Attr), f.Value) }

func (f RustFilter) Matches(fn *Function) bool {
	if fn.Lang != Rust || fn.Rust == nil {
		return false
	}
	info := fn.Rust
	switch f.Attr {
	case RustInBlock:
		if info.Block == nil {
			return f.Value == "" || f.Value == string(BlockUnknown)
		}
		return f.Value == "" || string(info.Block.Kind) == f.Value
	case RustBlockName:
		return info.Block != nil && (info.Block.Name == f.Value || info.Block.Trait == f.Value)
	case RustAttribute:
		return containsFold(info.Attributes, f.Value)
	case RustGeneric:
		return containsFold(info.Generics, f.Value)
	case RustLifetime:
		return contains(info.Lifetimes, f.Value) || contains(info.Lifetimes, "'"+f.Value)
	case RustReturnType:
		return fn.Returns == normalize(f.Value)
	case RustParameter:
		return fn.HasParam(f.Value)
	case RustParamType:
		return fn.HasParamType(f.Value)
	case RustVisibility:
		return info.Visibility == normalize(f.Value)
	case RustDocContains:
		return containsFold(info.DocComments, f.Value)
	case RustAsync:
		return info.Async
	case RustUnsafe:
		return info.Unsafe
	}
	return false
}

type PythonAttr string

const (
	PythonInClass         PythonAttr = "in-class"
	PythonParentFunction  PythonAttr = "parent-function"
	PythonDecorator       PythonAttr = "decorator"
	PythonClassDecorator  PythonAttr = "class-decorator"
	PythonParentDecorator PythonAttr = "parent-decorator"
	PythonParameter       PythonAttr = "parameter"
	PythonParentParameter PythonAttr = "parent-parameter"
	PythonReturnType      PythonAttr = "returns"
	PythonParentReturn    PythonAttr = "parent-returns"
	PythonAsync           PythonAttr = "async"
)

type PythonFilter struct {
	Attr  PythonAttr
	Value string
}

func (f PythonFilter) Language() Language { return Python }

func (f PythonFilter) String() string { return formatFilter(Python, string(f.Attr), f.Value) }

func (f PythonFilter) Matches(fn *Function) bool {
	if fn.Lang != Python || fn.Python == nil {
		return false
	}
	classes := parentsOfKind(fn, ParentClass)
	funcs := fn.EnclosingFunctions()
	switch f.Attr {
	case PythonInClass:
		return anyParent(classes, func(p Parent) bool { return f.Value == "" || p.Name == f.Value })
	case PythonParentFunction:
		return anyParent(funcs, func(p Parent) bool { return f.Value == "" || p.Name == f.Value })
	case PythonDecorator:
		return decoratorMatch(fn.Python.Decorators, f.Value)
	case PythonClassDecorator:
		return anyParent(classes, func(p Parent) bool { return decoratorMatch(p.Decorators, f.Value) })
	case PythonParentDecorator:
		return anyParent(funcs, func(p Parent) bool { return decoratorMatch(p.Decorators, f.Value) })
	case PythonParameter:
		return fn.HasParam(f.Value)
	case PythonParentParameter:
		return anyParent(funcs, func(p Parent) bool { return paramNamed(p.Params, f.Value) })
	case PythonReturnType:
		return fn.Returns == normalize(f.Value)
	case PythonParentReturn:
		return anyParent(funcs, func(p Parent) bool { return p.Returns == normalize(f.Value) })
	case PythonAsync:
		return fn.Python.Async
	}
	return false
}

type RubyAttr string

const (
	RubyInClass    RubyAttr = "in-class"
	RubyInModule   RubyAttr = "in-module"
	RubyParameter  RubyAttr = "parameter"
	RubySuperclass RubyAttr = "superclass"
	RubySingleton  RubyAttr = "singleton"
)

type RubyFilter struct {
	Attr  RubyAttr
	Value string
}

func (f RubyFilter) Language() Language { return Ruby }

func (f RubyFilter) String() string { return formatFilter(Ruby, string(f.Attr), f.Value) }

func (f RubyFilter) Matches(fn *Function) bool {
	if fn.Lang != Ruby || fn.Ruby == nil {
		return false
	}
	switch f.Attr {
	case RubyInClass:
		return anyParent(parentsOfKind(fn, ParentClass), func(p Parent) bool { return f.Value == "" || p.Name == f.Value })
	case RubyInModule:
		return anyParent(parentsOfKind(fn, ParentModule), func(p Parent) bool { return f.Value == "" || p.Name == f.Value })
	case RubyParameter:
		return fn.HasParam(f.Value)
	case RubySuperclass:
		return anyParent(parentsOfKind(fn, ParentClass), func(p Parent) bool { return p.Superclass == f.Value })
	case RubySingleton:
		return fn.Ruby.Singleton
	}
	return false
}

type GoAttr string

const (
	GoParameterType GoAttr = "parameter-type"
	GoParameterName GoAttr = "parameter"
	GoReturnType    GoAttr = "returns"
	GoReceiver      GoAttr = "receiver"
)

type GoFilter struct {
	Attr  GoAttr
	Value string
}

func (f GoFilter) Language() Language { return Go }

func (f GoFilter) String() string { return formatFilter(Go, string(f.Attr), f.Value) }

func (f GoFilter) Matches(fn *Function) bool {
	if fn.Lang != Go || fn.Go == nil {
		return false
	}
	switch f.Attr {
	case GoParameterType:
		return fn.HasParamType(f.Value)
	case GoParameterName:
		return fn.HasParam(f.Value)
	case GoReturnType:
		return contains(fn.Go.Results, normalize(f.Value)) || fn.Returns == normalize(f.Value)
	case GoReceiver:
		return fn.Go.Receiver == strings.TrimLeft(f.Value, "*")
	}
	return false
}

type CAttr string

const (
	CReturnType    CAttr = "returns"
	CParameter     CAttr = "parameter"
	CParameterType CAttr = "parameter-type"
	CStorageClass  CAttr = "storage"
	CVariadic      CAttr = "variadic"
)

type CFilter struct {
	Attr  CAttr
	Value string
}

func (f CFilter) Language() Language { return C }

func (f CFilter) String() string { return formatFilter(C, string(f.Attr), f.Value) }

func (f CFilter) Matches(fn *Function) bool {
	if fn.Lang != C || fn.C == nil {
		return false
	}
	switch f.Attr {
	case CReturnType:
		return fn.Returns == normalize(f.Value)
	case CParameter:
		return fn.HasParam(f.Value)
	case CParameterType:
		return fn.HasParamType(f.Value)
	case CStorageClass:
		return contains(fn.C.StorageClass, f.Value)
	case CVariadic:
		return fn.C.Variadic
	}
	return false
}

type UMPLAttr string

const (
	UMPLArgCount UMPLAttr = "args"
	UMPLParent   UMPLAttr = "parent"
)

type UMPLFilter struct {
	Attr  UMPLAttr
	Value string
}

func (f UMPLFilter) Language() Language { return UMPL }

func (f UMPLFilter) String() string { return formatFilter(UMPL, string(f.Attr), f.Value) }

func (f UMPLFilter) Matches(fn *Function) bool {
	if fn.Lang != UMPL || fn.UMPL == nil {
		return false
	}
	switch f.Attr {
	case UMPLArgCount:
		n, err := strconv.Atoi(f.Value)
		return err == nil && fn.UMPL.ArgCount == n
	case UMPLParent:
		return anyParent(fn.Parents, func(p Parent) bool { return p.Name == f.Value })
	}
	return false
}

var attrNames = map[Language][]string{
	Rust: {string(RustInBlock), string(RustBlockName), string(RustAttribute), string(RustGeneric),
		string(RustLifetime), string(RustReturnType), string(RustParameter), string(RustParamType),
		string(RustVisibility), string(RustDocContains), string(RustAsync), string(RustUnsafe)},
	Python: {string(PythonInClass), string(PythonParentFunction), string(PythonDecorator),
		string(PythonClassDecorator), string(PythonParentDecorator), string(PythonParameter),
		string(PythonParentParameter), string(PythonReturnType), string(PythonParentReturn), string(PythonAsync)},
	Ruby:  {string(RubyInClass), string(RubyInModule), string(RubyParameter), string(RubySuperclass), string(RubySingleton)},
	Go:    {string(GoParameterType), string(GoParameterName), string(GoReturnType), string(GoReceiver)},
	C:     {string(CReturnType), string(CParameter), string(CParameterType), string(CStorageClass), string(CVariadic)},
	UMPL:  {string(UMPLArgCount), string(UMPLParent)},
}

// Attributes lists the filter attribute names accepted for lang.
func Attributes(lang Language) []string {
	return attrNames[lang]
}

// ParseFilter builds a language filter from "attr" or "attr=value".
func ParseFilter(lang Language, expr string) (Filter, error) {
	attr, value, _ := strings.Cut(expr, "=")
	attr = strings.ToLower(strings.TrimSpace(attr))
	value = strings.TrimSpace(value)

	if !contains(attrNames[lang], attr) {
		return nil, fmt.Errorf("unknown %s filter %q (want one of %s)", lang, attr, strings.Join(attrNames[lang], ", "))
	}

	switch lang {
	case Rust:
		return RustFilter{Attr: RustAttr(attr), Value: value}, nil
	case Python:
		return PythonFilter{Attr: PythonAttr(attr), Value: value}, nil
	case Ruby:
		return RubyFilter{Attr: RubyAttr(attr), Value: value}, nil
	case Go:
		return GoFilter{Attr: GoAttr(attr), Value: value}, nil
	case C:
		return CFilter{Attr: CAttr(attr), Value: value}, nil
	case UMPL:
		if UMPLAttr(attr) == UMPLArgCount {
			if _, err := strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("umpl args: %w", err)
			}
		}
		return UMPLFilter{Attr: UMPLAttr(attr), Value: value}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
}

func formatFilter(lang Language, attr, value string) string {
	if value == "" {
		return fmt.Sprintf("%s:%s", lang, attr)
	}
	return fmt.Sprintf("%s:%s=%s", lang, attr, value)
}

func parentsOfKind(fn *Function, kind ParentKind) []Parent {
	var out []Parent
	for _, p := range fn.Parents {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func anyParent(parents []Parent, pred func(Parent) bool) bool {
	for _, p := range parents {
		if pred(p) {
			return true
		}
	}
	return false
}

func decoratorMatch(decorators []string, name string) bool {
	for _, d := range decorators {
		base := d
		if i := strings.IndexByte(base, '('); i >= 0 {
			base = base[:i]
		}
		if d == name || base == name {
			return true
		}
	}
	return false
}

func paramNamed(params []Param, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	s = strings.ToLower(s)
	for _, v := range list {
		if strings.Contains(strings.ToLower(v), s) {
			return true
		}
	}
	return false
}
