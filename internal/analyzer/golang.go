package analyzer

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoAnalyzer extracts structure from Go source via tree-sitter.
type GoAnalyzer struct {
	parser *sitter.Parser
}

// NewGoAnalyzer creates a Go analyzer.
func NewGoAnalyzer() *GoAnalyzer {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &GoAnalyzer{parser: p}
}

func (g *GoAnalyzer) Language() string { return "go" }

func (g *GoAnalyzer) Extensions() []string { return []string{".go"} }

// Analyze parses content and collects functions, methods, and type
// declarations. Embedded struct/interface fields count as bases.
func (g *GoAnalyzer) Analyze(content []byte) (*FileStructure, error) {
	tree, err := g.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("analyzer: parse go source: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("analyzer: go source has syntax errors")
	}

	fs := &FileStructure{Language: "go"}
	g.walk(root, content, fs)
	return fs, nil
}

func (g *GoAnalyzer) walk(node *sitter.Node, content []byte, fs *FileStructure) {
	switch node.Type() {
	case "function_declaration", "method_declaration":
		if sym := g.extractFunc(node, content); sym != nil {
			fs.Symbols = append(fs.Symbols, *sym)
		}
	case "type_spec":
		if sym := g.extractType(node, content); sym != nil {
			fs.Symbols = append(fs.Symbols, *sym)
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		g.walk(node.Child(i), content, fs)
	}
}

func (g *GoAnalyzer) extractFunc(node *sitter.Node, content []byte) *SymbolStructure {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	kind := "function"
	if node.Type() == "method_declaration" {
		kind = "method"
	}
	return &SymbolStructure{
		Name:      nameNode.Content(content),
		Kind:      kind,
		StartLine: int(node.StartPoint().Row) + 1,
		Calls:     collectGoCalls(node.ChildByFieldName("body"), content),
	}
}

func (g *GoAnalyzer) extractType(node *sitter.Node, content []byte) *SymbolStructure {
	nameNode := node.ChildByFieldName("name")
	typeNode := node.ChildByFieldName("type")
	if nameNode == nil || typeNode == nil {
		return nil
	}
	sym := &SymbolStructure{
		Name:      nameNode.Content(content),
		StartLine: int(node.StartPoint().Row) + 1,
	}
	switch typeNode.Type() {
	case "struct_type":
		sym.Kind = "struct"
		sym.Bases = goEmbeddedFields(typeNode, content)
	case "interface_type":
		sym.Kind = "interface"
		sym.Bases = goEmbeddedInterfaces(typeNode, content)
	default:
		sym.Kind = "type"
	}
	return sym
}

// goEmbeddedFields returns the names of embedded (anonymous) struct
// fields: a field_declaration with a type but no field names.
func goEmbeddedFields(structType *sitter.Node, content []byte) []string {
	var bases []string
	for i := 0; i < int(structType.ChildCount()); i++ {
		list := structType.Child(i)
		if list.Type() != "field_declaration_list" {
			continue
		}
		for j := 0; j < int(list.ChildCount()); j++ {
			field := list.Child(j)
			if field.Type() != "field_declaration" {
				continue
			}
			if field.ChildByFieldName("name") != nil {
				continue
			}
			typeNode := field.ChildByFieldName("type")
			if typeNode == nil {
				continue
			}
			if name := goTypeName(typeNode, content); name != "" {
				bases = append(bases, name)
			}
		}
	}
	return bases
}

func goEmbeddedInterfaces(ifaceType *sitter.Node, content []byte) []string {
	var bases []string
	for i := 0; i < int(ifaceType.ChildCount()); i++ {
		child := ifaceType.Child(i)
		switch child.Type() {
		case "type_identifier":
			bases = append(bases, child.Content(content))
		case "type_elem", "interface_type_name":
			if name := goTypeName(child, content); name != "" {
				bases = append(bases, name)
			}
		}
	}
	return bases
}

// goTypeName unwraps pointers and qualifiers down to the bare type name.
func goTypeName(node *sitter.Node, content []byte) string {
	switch node.Type() {
	case "type_identifier":
		return node.Content(content)
	case "pointer_type", "qualified_type", "generic_type", "type_elem", "interface_type_name":
		for i := 0; i < int(node.ChildCount()); i++ {
			if name := goTypeName(node.Child(i), content); name != "" {
				return name
			}
		}
	}
	return ""
}

// collectGoCalls walks a function body collecting callee names. For
// selector calls (obj.Method()) the method name is used, matching the
// best-effort name resolution used when edges are derived.
func collectGoCalls(body *sitter.Node, content []byte) []string {
	if body == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var order []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "call_expression" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				name := ""
				switch fn.Type() {
				case "identifier":
					name = fn.Content(content)
				case "selector_expression":
					if field := fn.ChildByFieldName("field"); field != nil {
						name = field.Content(content)
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
