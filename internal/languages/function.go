package languages

import (
	"fmt"
	"strings"
	"unicode"
)

// Span locates a definition in its file. Lines are 1-based and inclusive.
type Span struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
	StartByte int `json:"start_byte"`
	EndByte   int `json:"end_byte"`
}

func (s Span) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}

type ParamKind string

const (
	ParamPositional ParamKind = ""
	ParamSelf       ParamKind = "self"
	ParamVariadic   ParamKind = "variadic"
	ParamKeyword    ParamKind = "keyword"
	ParamKwSplat    ParamKind = "kwsplat"
	ParamBlock      ParamKind = "block"
)

type Param struct {
	Name    string    `json:"name,omitempty"`
	Type    string    `json:"type,omitempty"`
	Default string    `json:"default,omitempty"`
	Kind    ParamKind `json:"kind,omitempty"`
}

func (p Param) String() string {
	var b strings.Builder
	if p.Type == "" {
		switch p.Kind {
		case ParamVariadic:
			b.WriteString("*")
		case ParamKwSplat:
			b.WriteString("**")
		case ParamBlock:
			b.WriteString("&")
		}
	}
	b.WriteString(p.Name)
	if p.Type != "" {
		if p.Name != "" {
			b.WriteString(": ")
		}
		b.WriteString(p.Type)
	}
	if p.Default != "" {
		b.WriteString(" = ")
		b.WriteString(p.Default)
	}
	return b.String()
}

type ParentKind string

const (
	ParentClass    ParentKind = "class"
	ParentModule   ParentKind = "module"
	ParentImpl     ParentKind = "impl"
	ParentTrait    ParentKind = "trait"
	ParentExtern   ParentKind = "extern"
	ParentFunction ParentKind = "function"
	ParentReceiver ParentKind = "receiver"
)

// Parent is one link of the enclosing chain of a definition.
type Parent struct {
	Kind       ParentKind `json:"kind"`
	Name       string     `json:"name"`
	Trait      string     `json:"trait,omitempty"`
	Superclass string     `json:"superclass,omitempty"`
	Decorators []string   `json:"decorators,omitempty"`
	Params     []Param    `json:"params,omitempty"`
	Returns    string     `json:"returns,omitempty"`
	Top        string     `json:"top"`
	Bottom     string     `json:"bottom,omitempty"`
	Span       Span       `json:"span"`
}

// Segment is the name used for this parent inside a parent path.
func (p Parent) Segment() string {
	if p.Kind == ParentImpl && p.Trait != "" {
		return p.Trait + " for " + p.Name
	}
	return p.Name
}

type BlockKind string

const (
	BlockImpl    BlockKind = "impl"
	BlockTrait   BlockKind = "trait"
	BlockExtern  BlockKind = "extern"
	BlockUnknown BlockKind = "unknown"
)

type RustBlock struct {
	Kind  BlockKind `json:"kind"`
	Name  string    `json:"name,omitempty"`
	Trait string    `json:"trait,omitempty"`
}

type RustInfo struct {
	Block       *RustBlock `json:"block,omitempty"`
	Visibility  string     `json:"visibility,omitempty"`
	Attributes  []string   `json:"attributes,omitempty"`
	DocComments []string   `json:"doc_comments,omitempty"`
	Generics    []string   `json:"generics,omitempty"`
	Lifetimes   []string   `json:"lifetimes,omitempty"`
	Async       bool       `json:"async,omitempty"`
	Unsafe      bool       `json:"unsafe,omitempty"`
	Const       bool       `json:"const,omitempty"`
}

type PythonInfo struct {
	Decorators []string `json:"decorators,omitempty"`
	Async      bool     `json:"async,omitempty"`
}

type RubyInfo struct {
	Singleton bool   `json:"singleton,omitempty"`
	Receiver  string `json:"receiver,omitempty"`
}

type GoInfo struct {
	Receiver     string   `json:"receiver,omitempty"`
	ReceiverName string   `json:"receiver_name,omitempty"`
	Results      []string `json:"results,omitempty"`
	TypeParams   []string `json:"type_params,omitempty"`
}

type CInfo struct {
	StorageClass []string `json:"storage_class,omitempty"`
	Variadic     bool     `json:"variadic,omitempty"`
}

type UMPLInfo struct {
	ArgCount int `json:"arg_count"`
}

// Function is a definition found in a File. Exactly one of the language
// payloads is set and it always agrees with Lang.
type Function struct {
	Name    string   `json:"name"`
	Lang    Language `json:"language"`
	Params  []Param  `json:"params,omitempty"`
	Returns string   `json:"returns,omitempty"`
	Parents []Parent `json:"parents,omitempty"`
	Body    string   `json:"body"`
	Span    Span     `json:"span"`
	Ordinal int      `json:"ordinal,omitempty"`

	Rust   *RustInfo   `json:"rust,omitempty"`
	Python *PythonInfo `json:"python,omitempty"`
	Ruby   *RubyInfo   `json:"ruby,omitempty"`
	Go     *GoInfo     `json:"go,omitempty"`
	C      *CInfo      `json:"c,omitempty"`
	UMPL   *UMPLInfo   `json:"umpl,omitempty"`
}

// Key identifies a function across commits.
type Key struct {
	Language Language `json:"language"`
	Parent   string   `json:"parent,omitempty"`
	Name     string   `json:"name"`
	Ordinal  int      `json:"ordinal,omitempty"`
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Language))
	b.WriteString(":")
	if k.Parent != "" {
		b.WriteString(k.Parent)
		b.WriteString(separator(k.Language))
	}
	b.WriteString(k.Name)
	if k.Ordinal > 1 {
		fmt.Fprintf(&b, "#%d", k.Ordinal)
	}
	return b.String()
}

// Key identifies a definition across commits. A Ruby singleton method
// carries its receiver so it never shares a key with an instance method.
func (f *Function) Key() Key {
	name := f.Name
	if f.Ruby != nil && f.Ruby.Singleton {
		recv := f.Ruby.Receiver
		if recv == "" {
			recv = "self"
		}
		name = recv + "." + name
	}
	return Key{Language: f.Lang, Parent: f.ParentPath(), Name: name, Ordinal: f.Ordinal}
}

func separator(lang Language) string {
	switch lang {
	case Rust, Ruby:
		return "::"
	default:
		return "."
	}
}

// ParentPath joins the enclosing chain outermost first.
func (f *Function) ParentPath() string {
	if len(f.Parents) == 0 {
		return ""
	}
	segs := make([]string, 0, len(f.Parents))
	for _, p := range f.Parents {
		segs = append(segs, p.Segment())
	}
	return strings.Join(segs, separator(f.Lang))
}

// Parent returns the innermost enclosing parent, if any.
func (f *Function) Parent() (Parent, bool) {
	if len(f.Parents) == 0 {
		return Parent{}, false
	}
	return f.Parents[len(f.Parents)-1], true
}

// Class returns the innermost class-like parent: class, module, impl, trait or receiver.
func (f *Function) Class() (Parent, bool) {
	for i := len(f.Parents) - 1; i >= 0; i-- {
		if f.Parents[i].Kind != ParentFunction {
			return f.Parents[i], true
		}
	}
	return Parent{}, false
}

// EnclosingFunctions returns the function parents, outermost first.
func (f *Function) EnclosingFunctions() []Parent {
	var out []Parent
	for _, p := range f.Parents {
		if p.Kind == ParentFunction {
			out = append(out, p)
		}
	}
	return out
}

// Signature renders name, parents and parameter shapes. Whitespace inside
// types is normalized so formatting edits do not change it.
func (f *Function) Signature() string {
	var b strings.Builder
	if pp := f.ParentPath(); pp != "" {
		b.WriteString(pp)
		b.WriteString(separator(f.Lang))
	}
	b.WriteString(f.Name)
	b.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(")")
	if f.Returns != "" {
		b.WriteString(" -> ")
		b.WriteString(f.Returns)
	}
	return b.String()
}

func (f *Function) ParamCount() int {
	if f.UMPL != nil {
		return f.UMPL.ArgCount
	}
	return len(f.Params)
}

func (f *Function) HasParam(name string) bool {
	for _, p := range f.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (f *Function) HasParamType(typ string) bool {
	typ = normalize(typ)
	for _, p := range f.Params {
		if p.Type == typ {
			return true
		}
	}
	return false
}

// Valid reports whether the language payload agrees with Lang.
func (f *Function) Valid() bool {
	set := 0
	for _, ok := range []bool{f.Rust != nil, f.Python != nil, f.Ruby != nil, f.Go != nil, f.C != nil, f.UMPL != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return false
	}
	switch f.Lang {
	case Rust:
		return f.Rust != nil
	case Python:
		return f.Python != nil
	case Ruby:
		return f.Ruby != nil
	case Go:
		return f.Go != nil
	case C:
		return f.C != nil
	case UMPL:
		return f.UMPL != nil
	}
	return false
}

// normalize collapses whitespace and drops it around punctuation.
func normalize(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	joined := strings.Join(fields, " ")
	runes := []rune(joined)
	var b strings.Builder
	for i, r := range runes {
		if r == ' ' && i > 0 && i < len(runes)-1 {
			prev, next := runes[i-1], runes[i+1]
			if !isWord(prev) || !isWord(next) {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
