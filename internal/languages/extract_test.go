package languages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, path, src string) *File {
	t.Helper()
	file, err := Parse(path, []byte(src), All)
	require.NoError(t, err)
	for _, fn := range file.Functions {
		require.True(t, fn.Valid(), "payload does not match language for %s", fn.Name)
	}
	return file
}

func only(t *testing.T, file *File, name string) Function {
	t.Helper()
	fns := file.Find(name)
	require.Len(t, fns, 1, "definitions of %s", name)
	return fns[0]
}

const pythonSource = `import functools

def parse(text, *args, strict: bool = False, **kw) -> dict:
    # comment
    return {}

@dataclass
class Parser(Base):
    @functools.cache
    def run(self, x: int):
        def helper(y):
            return y
        return helper(x)

    async def fetch(self):
        pass
`

func TestPythonExtraction(t *testing.T) {
	file := mustParse(t, "a.py", pythonSource)
	require.Len(t, file.Functions, 4)

	parse := only(t, file, "parse")
	assert.Empty(t, parse.Parents)
	assert.Equal(t, "dict", parse.Returns)
	require.Len(t, parse.Params, 4)
	assert.Equal(t, Param{Name: "text"}, parse.Params[0])
	assert.Equal(t, Param{Name: "args", Kind: ParamVariadic}, parse.Params[1])
	assert.Equal(t, Param{Name: "strict", Type: "bool", Default: "False"}, parse.Params[2])
	assert.Equal(t, Param{Name: "kw", Kind: ParamKwSplat}, parse.Params[3])
	assert.Equal(t, 3, parse.Span.StartLine)
	assert.Equal(t, 5, parse.Span.EndLine)

	run := only(t, file, "run")
	assert.Equal(t, "Parser", run.ParentPath())
	assert.Equal(t, []string{"functools.cache"}, run.Python.Decorators)
	cls, ok := run.Class()
	require.True(t, ok)
	assert.Equal(t, "Base", cls.Superclass)
	assert.Equal(t, []string{"dataclass"}, cls.Decorators)
	assert.Equal(t, "    def run(self, x: int):", firstLine(run.Body))

	helper := only(t, file, "helper")
	assert.Equal(t, "Parser.run", helper.ParentPath())
	assert.Len(t, helper.EnclosingFunctions(), 1)

	fetch := only(t, file, "fetch")
	assert.True(t, fetch.Python.Async)

	assert.Len(t, file.TopLevel(), 3)
}

const rustSource = `use std::fmt;

/// Adds numbers.
#[inline]
pub fn add<'a, T: Copy>(a: &'a T, b: i32) -> i32 {
    b
}

struct Foo;

impl Foo {
    pub async fn new(&self, n: usize) -> Self {
        fn inner() {}
        Foo
    }
}

impl fmt::Display for Foo {
    fn fmt(&self, f: &mut fmt::Formatter) -> fmt::Result {
        Ok(())
    }
}

trait Shape {
    fn area(&self) -> f64;
}

extern "C" {
    fn abs(x: i32) -> i32;
}
`

func TestRustExtraction(t *testing.T) {
	file := mustParse(t, "lib.rs", rustSource)

	add := only(t, file, "add")
	assert.Equal(t, "pub", add.Rust.Visibility)
	assert.Equal(t, []string{"#[inline]"}, add.Rust.Attributes)
	assert.Equal(t, []string{"Adds numbers."}, add.Rust.DocComments)
	assert.Equal(t, []string{"'a"}, add.Rust.Lifetimes)
	assert.Equal(t, []string{"T:Copy"}, add.Rust.Generics)
	assert.Equal(t, "i32", add.Returns)
	require.Len(t, add.Params, 2)
	assert.Equal(t, Param{Name: "a", Type: "&'a T"}, add.Params[0])
	assert.Nil(t, add.Rust.Block)

	ctor := only(t, file, "new")
	assert.True(t, ctor.Rust.Async)
	require.NotNil(t, ctor.Rust.Block)
	assert.Equal(t, BlockImpl, ctor.Rust.Block.Kind)
	assert.Equal(t, "Foo", ctor.Rust.Block.Name)
	assert.Equal(t, ParamSelf, ctor.Params[0].Kind)

	inner := only(t, file, "inner")
	assert.Equal(t, "Foo::new", inner.ParentPath())
	assert.Nil(t, inner.Rust.Block)

	fmtFn := only(t, file, "fmt")
	assert.Equal(t, "fmt::Display for Foo", fmtFn.ParentPath())
	assert.Equal(t, "fmt::Display", fmtFn.Rust.Block.Trait)

	area := only(t, file, "area")
	assert.Equal(t, BlockTrait, area.Rust.Block.Kind)

	abs := only(t, file, "abs")
	assert.Equal(t, BlockExtern, abs.Rust.Block.Kind)
}

const rubySource = `module Shop
  class Cart < Base
    def add(item, qty = 1, *rest, key:, &blk)
      items << item
    end

    def self.build
      new
    end
  end
end

def helper
end
`

func TestRubyExtraction(t *testing.T) {
	file := mustParse(t, "cart.rb", rubySource)
	require.Len(t, file.Functions, 3)

	add := only(t, file, "add")
	assert.Equal(t, "Shop::Cart", add.ParentPath())
	require.Len(t, add.Params, 5)
	assert.Equal(t, Param{Name: "qty", Default: "1"}, add.Params[1])
	assert.Equal(t, ParamVariadic, add.Params[2].Kind)
	assert.Equal(t, ParamKeyword, add.Params[3].Kind)
	assert.Equal(t, ParamBlock, add.Params[4].Kind)
	cls, ok := add.Class()
	require.True(t, ok)
	assert.Equal(t, "Base", cls.Superclass)
	assert.Equal(t, "  end", cls.Bottom)

	build := only(t, file, "build")
	assert.True(t, build.Ruby.Singleton)
	assert.Equal(t, "self", build.Ruby.Receiver)
	assert.Equal(t, "ruby:Shop::Cart::self.build", build.Key().String())

	helper := only(t, file, "helper")
	assert.Empty(t, helper.Parents)
}

const goSource = `package demo

func Sum(a, b int, rest ...int) (total int, err error) {
	return a + b, nil
}

func (s *Stack[T]) Push(v T) {
	s.items = append(s.items, v)
}
`

func TestRubySingletonAndInstanceKeys(t *testing.T) {
	const before = "class Klass\n  def self.build\n    new\n  end\n\n  def build\n    @built = true\n  end\nend\n"
	const after = "class Klass\n  def build\n    @built = true\n  end\n\n  def self.build\n    new\n  end\nend\n"

	bodies := func(src string) map[string]string {
		file := mustParse(t, "klass.rb", src)
		out := map[string]string{}
		for _, fn := range file.Functions {
			out[fn.Key().String()] = fn.Body
		}
		return out
	}

	b, a := bodies(before), bodies(after)
	require.Len(t, b, 2)
	assert.Contains(t, b, "ruby:Klass::self.build")
	assert.Contains(t, b, "ruby:Klass::build")
	assert.Equal(t, b, a, "reordering must not swap identities")
}

func TestGoExtraction(t *testing.T) {
	file := mustParse(t, "demo.go", goSource)
	require.Len(t, file.Functions, 2)

	sum := only(t, file, "Sum")
	require.Len(t, sum.Params, 3)
	assert.Equal(t, Param{Name: "a", Type: "int"}, sum.Params[0])
	assert.Equal(t, Param{Name: "b", Type: "int"}, sum.Params[1])
	assert.Equal(t, Param{Name: "rest", Type: "...int", Kind: ParamVariadic}, sum.Params[2])
	assert.Equal(t, []string{"int", "error"}, sum.Go.Results)

	push := only(t, file, "Push")
	assert.Equal(t, "Stack", push.Go.Receiver)
	assert.Equal(t, "s", push.Go.ReceiverName)
	assert.Equal(t, "Stack", push.ParentPath())
	assert.Equal(t, "go:Stack.Push", push.Key().String())
}

const cSource = `#include <stdio.h>

static int add(int a, int b) {
    return a + b;
}

char *name(void) {
    return "x";
}

int printf_like(const char *fmt, ...) {
    return 0;
}
`

func TestCExtraction(t *testing.T) {
	file := mustParse(t, "math.c", cSource)
	require.Len(t, file.Functions, 3)

	add := only(t, file, "add")
	assert.Equal(t, "int", add.Returns)
	assert.Equal(t, []string{"static"}, add.C.StorageClass)
	assert.Equal(t, []Param{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}}, add.Params)

	name := only(t, file, "name")
	assert.Equal(t, "char*", name.Returns)
	assert.Empty(t, name.Params)

	pf := only(t, file, "printf_like")
	assert.True(t, pf.C.Variadic)
	assert.Equal(t, "const char*", pf.Params[0].Type)
	assert.Equal(t, "fmt", pf.Params[0].Name)
}

const umplSource = "! greeting program\n" +
	"potato 😀 2 ⧼\n" +
	"  (print `⧽ not a close`)\n" +
	"  potato 🙃 0 ⧼\n" +
	"    { (print 1) }\n" +
	"  ⧽\n" +
	"⧽\n" +
	"potato broken ⧼\n" +
	"⧽\n"

func TestUMPLExtraction(t *testing.T) {
	file := mustParse(t, "hello.umpl", umplSource)
	require.Len(t, file.Functions, 2)

	outer := file.Functions[0]
	assert.Equal(t, "😀", outer.Name)
	assert.Equal(t, 2, outer.UMPL.ArgCount)
	assert.Equal(t, 2, outer.ParamCount())
	assert.Equal(t, 2, outer.Span.StartLine)
	assert.Equal(t, 7, outer.Span.EndLine)

	inner := file.Functions[1]
	assert.Equal(t, "🙃", inner.Name)
	assert.Equal(t, "😀", inner.ParentPath())
	require.Len(t, inner.Parents, 1)
	assert.Equal(t, "⧽", inner.Parents[0].Bottom)
}

func TestUMPLUnterminatedIsPartial(t *testing.T) {
	file := mustParse(t, "x.umpl", "potato a 0 ⧼ ⧽\npotato b 1 ⧼\n")
	require.Len(t, file.Functions, 1)
	assert.Equal(t, "a", file.Functions[0].Name)
}

func TestMalformedInputIsPartial(t *testing.T) {
	src := "def ok():\n    return 1\n\ndef broken(:\n"
	file := mustParse(t, "a.py", src)
	assert.NotEmpty(t, file.Find("ok"))
}

func TestDuplicateDefinitionsGetOrdinals(t *testing.T) {
	src := "def f():\n    return 1\n\ndef f():\n    return 2\n"
	file := mustParse(t, "a.py", src)
	require.Len(t, file.Functions, 2)
	assert.Equal(t, 0, file.Functions[0].Ordinal)
	assert.Equal(t, 2, file.Functions[1].Ordinal)
	assert.NotEqual(t, file.Functions[0].Key(), file.Functions[1].Key())
}

func TestSignatureStableUnderFormatting(t *testing.T) {
	a := mustParse(t, "a.rs", "fn f(a: Vec<i32>, b: &mut  str) -> Option<u8> { None }\n")
	b := mustParse(t, "a.rs", "// lead\nfn f(\n    a: Vec< i32 >,\n    b: &mut str,\n) -> Option<u8> {\n    None\n}\n")

	fa, fb := only(t, a, "f"), only(t, b, "f")
	assert.Equal(t, fa.Signature(), fb.Signature())
	assert.Equal(t, fa.Key(), fb.Key())
	assert.NotEqual(t, fa.Body, fb.Body)
}

func TestReparseRoundTrip(t *testing.T) {
	sources := map[string]string{
		"a.py":      pythonSource,
		"lib.rs":    rustSource,
		"cart.rb":   rubySource,
		"demo.go":   goSource,
		"math.c":    cSource,
		"hello.umpl": umplSource,
	}
	for path, src := range sources {
		file := mustParse(t, path, src)
		for _, fn := range file.Functions {
			fn := fn
			got, err := Reparse(&fn)
			require.NoError(t, err, "%s %s", path, fn.Name)
			assert.Equal(t, fn.Name, got.Name, path)
			assert.Equal(t, fn.ParentPath(), got.ParentPath(), "%s %s", path, fn.Name)
			assert.Equal(t, fn.ParamCount(), got.ParamCount(), "%s %s", path, fn.Name)
		}
	}
}

func TestContextRendering(t *testing.T) {
	file := mustParse(t, "cart.rb", rubySource)
	add := only(t, file, "add")

	want := " 1: module Shop\n" +
		"...\n" +
		" 2:   class Cart < Base\n" +
		"...\n" +
		" 3:     def add(item, qty = 1, *rest, key:, &blk)\n" +
		" 4:       items << item\n" +
		" 5:     end\n" +
		"...\n" +
		"10:   end\n" +
		"...\n" +
		"11: end\n"
	assert.Equal(t, want, add.Context())
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
