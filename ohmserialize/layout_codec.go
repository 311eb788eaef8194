package ohmserialize

import (
	"github.com/ohmcore/ohm/ohmlayout"
)

// writeLayout encodes l per spec.md §4.9's Layout section: layer count, then for each layer
// {name, flags, subsampling^3, schema{member_count, member*{name, type_code, offset, default_bytes}}}.
func writeLayout(bw *binWriter, l *ohmlayout.Layout) {
	layers := l.Layers()
	bw.u32(uint32(len(layers)))
	for _, layer := range layers {
		bw.str(layer.Name)
		bw.u32(uint32(layer.LayerFlags))
		bw.u8(layer.Subsampling[0])
		bw.u8(layer.Subsampling[1])
		bw.u8(layer.Subsampling[2])
		bw.u32(uint32(len(layer.Members)))
		for _, m := range layer.Members {
			bw.str(m.Name)
			bw.u8(uint8(m.Type))
			bw.u32(m.Offset)
			bw.blob(m.Default)
		}
	}
}

// readLayout decodes the Layout section. Member offsets are re-derived by AppendMember's
// deterministic alignment rule rather than trusted verbatim from the stream: the written offset is
// still consumed (and checked) so a file produced by a future, differently-aligned writer is
// rejected as layout-mismatch rather than silently misread.
func readLayout(br *binReader) (*ohmlayout.Layout, error) {
	layerCount := br.u32()
	if br.err != nil {
		return nil, wrapErr(KindTruncated, br.err)
	}
	l := ohmlayout.New()
	for i := uint32(0); i < layerCount; i++ {
		name := br.str()
		flags := ohmlayout.Flags(br.u32())
		var sub [3]uint8
		sub[0] = br.u8()
		sub[1] = br.u8()
		sub[2] = br.u8()
		memberCount := br.u32()
		if br.err != nil {
			return nil, wrapErr(KindTruncated, br.err)
		}
		layer, err := l.AppendLayer(name, flags, sub)
		if err != nil {
			return nil, wrapErr(KindLayoutMismatch, err)
		}
		for j := uint32(0); j < memberCount; j++ {
			memberName := br.str()
			typeCode := br.u8()
			storedOffset := br.u32()
			defaultBytes := br.blob()
			if br.err != nil {
				return nil, wrapErr(KindTruncated, br.err)
			}
			if err := l.AppendMember(layer, memberName, ohmlayout.MemberType(typeCode), defaultBytes); err != nil {
				return nil, wrapErr(KindLayoutMismatch, err)
			}
			added, _ := layer.Member(memberName)
			if added.Offset != storedOffset {
				return nil, newErr(KindLayoutMismatch, "ohmserialize: layer %q member %q offset mismatch: file says %d, computed %d", name, memberName, storedOffset, added.Offset)
			}
		}
	}
	return l, nil
}
