package graph

import "k8s.io/klog/v2"

// DataMalloc plans offsets for every tensor via the graph's allocator, materializes the
// single backing allocation, and binds each tensor's data blob to base+offset. Requires a
// successful topological order first (ensured here).
func (g *Graph) DataMalloc() error {
	if err := g.TopoSort(); err != nil {
		return err
	}

	offsets := make(map[int]int, g.tensors.Len())
	for pair := g.tensors.Oldest(); pair != nil; pair = pair.Next() {
		t := pair.Value
		offset, err := g.allocator.Alloc(t.Bytes())
		if err != nil {
			return err
		}
		offsets[t.Fuid()] = offset
	}

	base := g.allocator.Ptr()
	for pair := g.tensors.Oldest(); pair != nil; pair = pair.Next() {
		t := pair.Value
		offset := offsets[t.Fuid()]
		t.SetDataBlob(base[offset : offset+t.Bytes()])
	}

	klog.V(2).Infof("graph: data_malloc done, %s", g.allocator.Info())
	return nil
}
