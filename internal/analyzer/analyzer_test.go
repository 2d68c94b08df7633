package analyzer_test

import (
	"testing"

	"agentdb/internal/analyzer"
)

func findSymbol(t *testing.T, fs *analyzer.FileStructure, name string) analyzer.SymbolStructure {
	t.Helper()
	for _, s := range fs.Symbols {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("symbol %q not found in %+v", name, fs.Symbols)
	return analyzer.SymbolStructure{}
}

func hasCall(sym analyzer.SymbolStructure, callee string) bool {
	for _, c := range sym.Calls {
		if c == callee {
			return true
		}
	}
	return false
}

func TestGoAnalyzer_FunctionsAndCalls(t *testing.T) {
	src := []byte(`package demo

func helper(n int) int {
	return n * 2
}

func main() {
	x := helper(21)
	println(x)
}
`)
	fs, err := analyzer.NewGoAnalyzer().Analyze(src)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fs.Language != "go" {
		t.Fatalf("language = %q, want go", fs.Language)
	}

	helper := findSymbol(t, fs, "helper")
	if helper.Kind != "function" || helper.StartLine != 3 {
		t.Errorf("helper = kind %q line %d, want function line 3", helper.Kind, helper.StartLine)
	}

	mainSym := findSymbol(t, fs, "main")
	if !hasCall(mainSym, "helper") {
		t.Errorf("main calls = %v, want helper", mainSym.Calls)
	}
}

func TestGoAnalyzer_MethodsAndTypes(t *testing.T) {
	src := []byte(`package demo

type Base struct{}

type Widget struct {
	Base
	name string
}

type Closer interface {
	Close() error
}

func (w *Widget) Render() string {
	return w.describe()
}

func (w *Widget) describe() string { return w.name }
`)
	fs, err := analyzer.NewGoAnalyzer().Analyze(src)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	widget := findSymbol(t, fs, "Widget")
	if widget.Kind != "struct" {
		t.Errorf("Widget kind = %q, want struct", widget.Kind)
	}
	if len(widget.Bases) != 1 || widget.Bases[0] != "Base" {
		t.Errorf("Widget bases = %v, want [Base]", widget.Bases)
	}

	closer := findSymbol(t, fs, "Closer")
	if closer.Kind != "interface" {
		t.Errorf("Closer kind = %q, want interface", closer.Kind)
	}

	render := findSymbol(t, fs, "Render")
	if render.Kind != "method" {
		t.Errorf("Render kind = %q, want method", render.Kind)
	}
	if !hasCall(render, "describe") {
		t.Errorf("Render calls = %v, want describe", render.Calls)
	}
}

func TestGoAnalyzer_SyntaxErrorRejected(t *testing.T) {
	_, err := analyzer.NewGoAnalyzer().Analyze([]byte("package demo\n\nfunc broken( {\n"))
	if err == nil {
		t.Fatal("expected error for broken Go source")
	}
}

func TestPythonAnalyzer_ClassesAndCalls(t *testing.T) {
	src := []byte(`class Animal:
    def speak(self):
        return "?"

class Dog(Animal):
    def speak(self):
        return self.bark()

    def bark(self):
        return "woof"

def feed(dog):
    dog.speak()
    print("fed")
`)
	fs, err := analyzer.NewPythonAnalyzer().Analyze(src)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fs.Language != "python" {
		t.Fatalf("language = %q, want python", fs.Language)
	}

	dog := findSymbol(t, fs, "Dog")
	if dog.Kind != "class" {
		t.Errorf("Dog kind = %q, want class", dog.Kind)
	}
	if len(dog.Bases) != 1 || dog.Bases[0] != "Animal" {
		t.Errorf("Dog bases = %v, want [Animal]", dog.Bases)
	}

	bark := findSymbol(t, fs, "bark")
	if bark.Kind != "method" {
		t.Errorf("bark kind = %q, want method", bark.Kind)
	}

	feed := findSymbol(t, fs, "feed")
	if feed.Kind != "function" {
		t.Errorf("feed kind = %q, want function", feed.Kind)
	}
	if !hasCall(feed, "speak") || !hasCall(feed, "print") {
		t.Errorf("feed calls = %v, want speak and print", feed.Calls)
	}
}

func TestPythonAnalyzer_NestedFunctionNotMethod(t *testing.T) {
	src := []byte(`def outer():
    def inner():
        pass
    inner()
`)
	fs, err := analyzer.NewPythonAnalyzer().Analyze(src)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	inner := findSymbol(t, fs, "inner")
	if inner.Kind != "function" {
		t.Errorf("inner kind = %q, want function", inner.Kind)
	}
	outer := findSymbol(t, fs, "outer")
	if !hasCall(outer, "inner") {
		t.Errorf("outer calls = %v, want inner", outer.Calls)
	}
}

func TestRegistry_ForPath(t *testing.T) {
	reg := analyzer.NewDefaultRegistry()

	if a := reg.ForPath("pkg/widget.go"); a == nil || a.Language() != "go" {
		t.Fatalf("ForPath(.go) = %v", a)
	}
	if a := reg.ForPath("scripts/run.PY"); a == nil || a.Language() != "python" {
		t.Fatalf("ForPath(.PY) = %v", a)
	}
	if a := reg.ForPath("README.md"); a != nil {
		t.Fatalf("ForPath(.md) = %v, want nil", a)
	}
}
