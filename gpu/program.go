package gpu

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ProgramLayout is the interface of a compiled program as seen by the host:
// vertex attribute locations and the byte layout of its uniform block.
// Platforms build it with ReflectProgram when compiling.
type ProgramLayout struct {
	Label         string
	VertexEntry   string
	FragmentEntry string

	// UniformGroup and UniformBinding locate the uniform block.
	UniformGroup   uint32
	UniformBinding uint32
	// UniformSize is the byte size of the uniform block.
	UniformSize int

	attributes map[string]int
	uniforms   map[string]int
}

// Attribute is a vertex input of the program.
type Attribute struct {
	Name     string
	Location int
}

// AttribLocation returns the @location of the named vertex input, or -1.
func (l *ProgramLayout) AttribLocation(name string) int {
	if loc, ok := l.attributes[name]; ok {
		return loc
	}
	return -1
}

// UniformLocation returns the byte offset of the named uniform block member,
// or -1.
func (l *ProgramLayout) UniformLocation(name string) int {
	if off, ok := l.uniforms[name]; ok {
		return off
	}
	return -1
}

// Attributes returns the vertex inputs ordered by location.
func (l *ProgramLayout) Attributes() []Attribute {
	attrs := make([]Attribute, 0, len(l.attributes))
	for name, loc := range l.attributes {
		attrs = append(attrs, Attribute{Name: name, Location: loc})
	}
	slices.SortFunc(attrs, func(a, b Attribute) int { return a.Location - b.Location })
	return attrs
}

// ReflectProgram parses, lowers and validates a WGSL program with naga and
// extracts its host-visible layout. It also checks that every fragment input
// location is written by the vertex stage, which is what a GL link step
// would reject.
func ReflectProgram(src ShaderSource) (*ProgramLayout, error) {
	ast, err := naga.Parse(src.Code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Label, err)
	}
	module, err := naga.LowerWithSource(ast, src.Code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Label, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%s: validate: %w", src.Label, err)
	}
	if len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, fmt.Errorf("%s: validate: %w", src.Label, errors.Join(errs...))
	}

	vs := findEntryPoint(module, src.VertexEntry, ir.StageVertex)
	if vs == nil {
		return nil, fmt.Errorf("%s: no vertex entry point %q", src.Label, src.VertexEntry)
	}
	fs := findEntryPoint(module, src.FragmentEntry, ir.StageFragment)
	if fs == nil {
		return nil, fmt.Errorf("%s: no fragment entry point %q", src.Label, src.FragmentEntry)
	}

	layout := &ProgramLayout{
		Label:         src.Label,
		VertexEntry:   src.VertexEntry,
		FragmentEntry: src.FragmentEntry,
		attributes:    make(map[string]int),
		uniforms:      make(map[string]int),
	}

	for _, arg := range vs.Function.Arguments {
		for name, loc := range argumentLocations(module, arg) {
			layout.attributes[name] = loc
		}
	}

	if err := reflectUniforms(module, layout); err != nil {
		return nil, fmt.Errorf("%s: %w", src.Label, err)
	}

	if err := checkVaryings(module, vs, fs); err != nil {
		return nil, fmt.Errorf("%s: link: %w", src.Label, err)
	}
	return layout, nil
}

func findEntryPoint(m *ir.Module, name string, stage ir.ShaderStage) *ir.EntryPoint {
	for i := range m.EntryPoints {
		if ep := &m.EntryPoints[i]; ep.Name == name && ep.Stage == stage {
			return ep
		}
	}
	return nil
}

// argumentLocations returns the @location inputs carried by a function
// argument, either directly or through the members of a struct argument.
func argumentLocations(m *ir.Module, arg ir.FunctionArgument) map[string]int {
	locs := make(map[string]int)
	if arg.Binding != nil {
		if b, ok := (*arg.Binding).(ir.LocationBinding); ok {
			locs[arg.Name] = int(b.Location)
		}
		return locs
	}
	if st, ok := structType(m, arg.Type); ok {
		for _, member := range st.Members {
			if member.Binding == nil {
				continue
			}
			if b, ok := (*member.Binding).(ir.LocationBinding); ok {
				locs[member.Name] = int(b.Location)
			}
		}
	}
	return locs
}

func structType(m *ir.Module, h ir.TypeHandle) (ir.StructType, bool) {
	if int(h) >= len(m.Types) {
		return ir.StructType{}, false
	}
	st, ok := m.Types[h].Inner.(ir.StructType)
	return st, ok
}

// reflectUniforms records the first uniform block. The block must be a
// struct in bind group 0; its member offsets become the uniform locations.
func reflectUniforms(m *ir.Module, layout *ProgramLayout) error {
	for _, gv := range m.GlobalVariables {
		if gv.Space != ir.SpaceUniform {
			continue
		}
		if gv.Binding == nil {
			return fmt.Errorf("uniform %q has no binding", gv.Name)
		}
		st, ok := structType(m, gv.Type)
		if !ok {
			return fmt.Errorf("uniform %q is not a struct", gv.Name)
		}
		if gv.Binding.Group != 0 {
			return fmt.Errorf("uniform %q is in group %d, only group 0 is supported", gv.Name, gv.Binding.Group)
		}
		layout.UniformGroup = gv.Binding.Group
		layout.UniformBinding = gv.Binding.Binding
		layout.UniformSize = int(st.Span)
		for _, member := range st.Members {
			layout.uniforms[member.Name] = int(member.Offset)
		}
		return nil
	}
	return nil
}

// checkVaryings verifies that the fragment stage reads only locations the
// vertex stage writes.
func checkVaryings(m *ir.Module, vs, fs *ir.EntryPoint) error {
	written := make(map[int]bool)
	if r := vs.Function.Result; r != nil {
		if r.Binding != nil {
			if b, ok := (*r.Binding).(ir.LocationBinding); ok {
				written[int(b.Location)] = true
			}
		} else if st, ok := structType(m, r.Type); ok {
			for _, member := range st.Members {
				if member.Binding == nil {
					continue
				}
				if b, ok := (*member.Binding).(ir.LocationBinding); ok {
					written[int(b.Location)] = true
				}
			}
		}
	}

	for _, arg := range fs.Function.Arguments {
		for name, loc := range argumentLocations(m, arg) {
			if !written[loc] {
				return fmt.Errorf("fragment input %q at location %d is not written by the vertex stage", name, loc)
			}
		}
	}
	return nil
}
