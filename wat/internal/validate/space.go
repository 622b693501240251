package validate

import (
	"strings"

	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

// Sig is a function signature as value type names.
type Sig struct {
	Params  []string
	Results []string
}

// Equal reports whether two signatures have the same types.
func (s Sig) Equal(o Sig) bool {
	return strings.Join(s.Params, ",") == strings.Join(o.Params, ",") &&
		strings.Join(s.Results, ",") == strings.Join(o.Results, ",")
}

// Decl is one entry of an index space.
type Decl struct {
	// Ref is the declaring node: the field itself, the ImportDecl for imports,
	// an InlineElem or InlineData for segments declared inside a table or
	// memory, or a Param/Local for locals.
	Ref      syntax.Ref
	Name     string
	NameSpan token.Span
	Sig      Sig
	Index    uint32
	Imported bool
	// ValType is the value type of a local.
	ValType string
	// HasSig is set for functions and types whose signature is known.
	HasSig bool
}

// IndexSpace maps names and numeric indices to declarations. Indices are
// assigned from 0 in the order entries are added.
type IndexSpace struct {
	Decls []Decl
	names map[string]int
	Space syntax.Space
}

func newSpace(space syntax.Space) *IndexSpace {
	return &IndexSpace{Space: space, names: make(map[string]int)}
}

// add appends d and returns the earlier declaration when d's name is taken.
// A duplicate still receives an index but does not take over the name.
func (s *IndexSpace) add(d Decl) (Decl, bool) {
	d.Index = uint32(len(s.Decls))
	s.Decls = append(s.Decls, d)
	if d.Name == "" {
		return Decl{}, false
	}
	if i, ok := s.names[d.Name]; ok {
		return s.Decls[i], true
	}
	s.names[d.Name] = int(d.Index)
	return Decl{}, false
}

// Len returns the number of entries.
func (s *IndexSpace) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Decls)
}

// Resolve looks up a reference written as $name or as an unsigned integer.
func (s *IndexSpace) Resolve(text string) (Decl, bool) {
	if s == nil {
		return Decl{}, false
	}
	if strings.HasPrefix(text, "$") {
		i, ok := s.names[text]
		if !ok {
			return Decl{}, false
		}
		return s.Decls[i], true
	}
	n, err := token.ParseU32(text)
	if err != nil || int(n) >= len(s.Decls) {
		return Decl{}, false
	}
	return s.Decls[n], true
}

// Lookup returns the declaration bound to name.
func (s *IndexSpace) Lookup(name string) (Decl, bool) {
	if s == nil {
		return Decl{}, false
	}
	i, ok := s.names[name]
	if !ok {
		return Decl{}, false
	}
	return s.Decls[i], true
}

// ValTypes returns the value type keywords of a Param, Result, Local or
// GlobalType node, skipping its leading keyword.
func ValTypes(n *syntax.Node) []string {
	var out []string
	head := true
	for _, c := range n.Children() {
		if !c.IsLeaf() || c.TokenKind() != token.Keyword {
			continue
		}
		if head {
			head = false
			continue
		}
		out = append(out, c.Text())
	}
	return out
}

// NameOf returns the $name bound by a node, or "".
func NameOf(r syntax.Ref) (string, token.Span) {
	if n, ok := r.FirstChildOf(syntax.KindName); ok {
		return n.Text(), n.Span()
	}
	return "", r.Span()
}
