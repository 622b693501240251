package wat

import (
	"strconv"
	"strings"

	"github.com/wippyai/wat-engine/wat/internal/validate"
	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

// Symbol is one declaration as an outline view shows it.
type Symbol struct {
	Module    string       `json:"module,omitempty"`
	Space     syntax.Space `json:"-"`
	SpaceName string       `json:"space"`
	Name      string       `json:"name,omitempty"`
	Signature string       `json:"signature,omitempty"`
	Exports   []string     `json:"exports,omitempty"`
	Span      token.Span   `json:"span"`
	Index     uint32       `json:"index"`
	Imported  bool         `json:"imported,omitempty"`
}

// Label returns the name of the symbol, or its index when it has none.
func (s Symbol) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.SpaceName + " " + strconv.FormatUint(uint64(s.Index), 10)
}

// Outline lists the declarations of every module in res, grouped by index
// space in a fixed order and by index within a space.
func Outline(res Result) []Symbol {
	var out []Symbol
	for _, m := range res.Modules {
		exports := exportsByDecl(m)
		for _, space := range syntax.ModuleSpaces {
			for _, d := range m.Space(space).Decls {
				sym := Symbol{
					Module:    m.Name,
					Space:     space,
					SpaceName: space.String(),
					Index:     d.Index,
					Name:      d.Name,
					Span:      d.Ref.Span(),
					Imported:  d.Imported,
					Exports:   exports[declKey{space, d.Index}],
				}
				if d.HasSig {
					sym.Signature = signature(d.Sig)
				}
				out = append(out, sym)
			}
		}
	}
	return out
}

type declKey struct {
	space syntax.Space
	index uint32
}

// exportsByDecl maps each exported declaration to its export names.
func exportsByDecl(m *validate.Module) map[declKey][]string {
	out := make(map[declKey][]string)
	for _, e := range m.Exports {
		if e.Owner.Valid() {
			space := ownerSpace(e.Owner.Kind())
			if m.Space(space) == nil {
				continue
			}
			for _, d := range m.Space(space).Decls {
				if d.Ref.Node() == e.Owner.Node() {
					k := declKey{space, d.Index}
					out[k] = append(out[k], e.Name)
				}
			}
			continue
		}
		desc, ok := e.Ref.FirstChildOf(syntax.KindExportDesc)
		if !ok {
			continue
		}
		idx, ok := desc.FirstChildOf(syntax.KindIdxRef)
		if !ok {
			continue
		}
		if d, ok := m.Space(idx.Space()).Resolve(idx.Text()); ok {
			k := declKey{idx.Space(), d.Index}
			out[k] = append(out[k], e.Name)
		}
	}
	return out
}

func ownerSpace(k syntax.Kind) syntax.Space {
	switch k {
	case syntax.KindFuncDecl:
		return syntax.SpaceFunc
	case syntax.KindTableDecl:
		return syntax.SpaceTable
	case syntax.KindMemoryDecl:
		return syntax.SpaceMemory
	case syntax.KindGlobalDecl:
		return syntax.SpaceGlobal
	}
	return syntax.SpaceNone
}

// signature renders a signature the way the text format writes it.
func signature(sig validate.Sig) string {
	var parts []string
	if len(sig.Params) > 0 {
		parts = append(parts, "(param "+strings.Join(sig.Params, " ")+")")
	}
	if len(sig.Results) > 0 {
		parts = append(parts, "(result "+strings.Join(sig.Results, " ")+")")
	}
	return strings.Join(parts, " ")
}
