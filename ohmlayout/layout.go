package ohmlayout

import (
	"github.com/pkg/errors"
)

// Layout is the mutable builder for a map's voxel schema: an ordered list of layers, each with its
// own member schema. Once a map has allocated regions against a Layout, further structural changes
// are forbidden (spec.md §3); callers signal that transition by calling Lock.
type Layout struct {
	layers []*Layer
	byName map[string]int
	locked bool
}

// New returns an empty, unlocked Layout.
func New() *Layout {
	return &Layout{byName: map[string]int{}}
}

// Locked reports whether this layout has been locked against further structural changes.
func (l *Layout) Locked() bool {
	return l.locked
}

// Lock forbids any further AppendLayer/AppendMember calls. Called once a map has allocated its
// first region against this layout.
func (l *Layout) Lock() {
	l.locked = true
}

// Layers returns the layers in insertion order. The returned slice must not be mutated.
func (l *Layout) Layers() []*Layer {
	return l.layers
}

// LayerCount returns the number of layers in this layout.
func (l *Layout) LayerCount() int {
	return len(l.layers)
}

// Layer looks up a layer by name, case-sensitive, O(layer count).
func (l *Layout) Layer(name string) (*Layer, bool) {
	idx, ok := l.byName[name]
	if !ok {
		return nil, false
	}
	return l.layers[idx], true
}

// AppendLayer adds a new, empty layer to the layout and returns it for AppendMember calls.
// Subsampling of {0,0,0} means full resolution on every axis.
func (l *Layout) AppendLayer(name string, flags Flags, subsampling [3]uint8) (*Layer, error) {
	if l.locked {
		return nil, errors.Errorf("ohmlayout: cannot add layer %q: layout is locked", name)
	}
	if err := validateMemberName(name); err != nil {
		return nil, err
	}
	if _, exists := l.byName[name]; exists {
		return nil, errors.Errorf("ohmlayout: layer %q already exists", name)
	}
	layer := &Layer{
		Name:        name,
		Index:       len(l.layers),
		LayerFlags:  flags,
		Subsampling: subsampling,
	}
	l.byName[name] = len(l.layers)
	l.layers = append(l.layers, layer)
	return layer, nil
}

// AppendMember adds a new member to layer's schema. The member's offset is assigned densely with
// natural alignment (offset rounded up to the member's own size); the layer's VoxelByteSize is
// recomputed and aligned up to 4 bytes after every append, per spec.md §3.
func (l *Layout) AppendMember(layer *Layer, name string, typ MemberType, defaultValue []byte) error {
	if l.locked {
		return errors.Errorf("ohmlayout: cannot add member %q: layout is locked", name)
	}
	if err := validateMemberName(name); err != nil {
		return err
	}
	if _, exists := layer.Member(name); exists {
		return errors.Errorf("ohmlayout: layer %q already has member %q", layer.Name, name)
	}
	size := typ.Size()
	if size == 0 {
		return errors.Errorf("ohmlayout: unknown member type for %q", name)
	}
	if len(defaultValue) != size {
		return errors.Errorf("ohmlayout: member %q default value must be %d bytes, got %d", name, size, len(defaultValue))
	}

	offset := alignUp(layer.VoxelByteSize, uint32(size))
	member := Member{
		Name:    name,
		Type:    typ,
		Offset:  offset,
		Default: append([]byte(nil), defaultValue...),
	}
	layer.Members = append(layer.Members, member)
	layer.VoxelByteSize = alignUp(offset+uint32(size), 4)
	return nil
}

func alignUp(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}
