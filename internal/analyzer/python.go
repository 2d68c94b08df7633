package analyzer

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonAnalyzer extracts structure from Python source via tree-sitter.
type PythonAnalyzer struct {
	parser *sitter.Parser
}

// NewPythonAnalyzer creates a Python analyzer.
func NewPythonAnalyzer() *PythonAnalyzer {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonAnalyzer{parser: p}
}

func (p *PythonAnalyzer) Language() string { return "python" }

func (p *PythonAnalyzer) Extensions() []string { return []string{".py"} }

// Analyze parses content and collects classes, functions, and methods.
// Functions nested inside a class body are reported as methods.
func (p *PythonAnalyzer) Analyze(content []byte) (*FileStructure, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("analyzer: parse python source: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("analyzer: python source has syntax errors")
	}

	fs := &FileStructure{Language: "python"}
	p.walk(root, content, fs, false)
	return fs, nil
}

func (p *PythonAnalyzer) walk(node *sitter.Node, content []byte, fs *FileStructure, inClass bool) {
	switch node.Type() {
	case "function_definition":
		if sym := p.extractFunc(node, content, inClass); sym != nil {
			fs.Symbols = append(fs.Symbols, *sym)
		}
		if body := node.ChildByFieldName("body"); body != nil {
			p.walk(body, content, fs, false)
		}
		return
	case "class_definition":
		if sym := p.extractClass(node, content); sym != nil {
			fs.Symbols = append(fs.Symbols, *sym)
		}
		if body := node.ChildByFieldName("body"); body != nil {
			p.walk(body, content, fs, true)
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		p.walk(node.Child(i), content, fs, inClass)
	}
}

func (p *PythonAnalyzer) extractFunc(node *sitter.Node, content []byte, inClass bool) *SymbolStructure {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	kind := "function"
	if inClass {
		kind = "method"
	}
	return &SymbolStructure{
		Name:      nameNode.Content(content),
		Kind:      kind,
		StartLine: int(node.StartPoint().Row) + 1,
		Calls:     collectPyCalls(node.ChildByFieldName("body"), content),
	}
}

func (p *PythonAnalyzer) extractClass(node *sitter.Node, content []byte) *SymbolStructure {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	sym := &SymbolStructure{
		Name:      nameNode.Content(content),
		Kind:      "class",
		StartLine: int(node.StartPoint().Row) + 1,
	}
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.ChildCount()); i++ {
			arg := supers.Child(i)
			switch arg.Type() {
			case "identifier":
				sym.Bases = append(sym.Bases, arg.Content(content))
			case "attribute":
				if attr := arg.ChildByFieldName("attribute"); attr != nil {
					sym.Bases = append(sym.Bases, attr.Content(content))
				}
			}
		}
	}
	return sym
}

// collectPyCalls gathers callee names from a function body without
// descending into nested function or class definitions.
func collectPyCalls(body *sitter.Node, content []byte) []string {
	if body == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var order []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition", "class_definition":
			return
		case "call":
			if fn := n.ChildByFieldName("function"); fn != nil {
				name := ""
				switch fn.Type() {
				case "identifier":
					name = fn.Content(content)
				case "attribute":
					if attr := fn.ChildByFieldName("attribute"); attr != nil {
						name = attr.Content(content)
					}
				}
				if name != "" {
					if _, dup := seen[name]; !dup {
						seen[name] = struct{}{}
						order = append(order, name)
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return order
}
