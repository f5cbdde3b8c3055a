package machine

// Heap owns every value this machine package allocates on the heap (Array,
// Struct, Enum, Closure, Cell, ErrorValue, RangeIter) and runs the
// mark-sweep collector spec.md's GC section describes: allocation grows a
// byte counter, and once it crosses threshold a collection walks the root
// set (the registers, upvalue cells and return value of every Frame on the
// thread's call stack, via Frame.markRoots), doubling threshold again if
// the live set didn't shrink enough. The constant pools and the thread's
// last error are not walked as roots.
type Heap struct {
	objects   []gcObject
	allocated int64 // rough byte accounting, used only to size the threshold
	threshold int64
}

const initialGCThreshold = 1 << 20 // 1 MiB of nominal heap pressure before the first collection

func newHeap() *Heap {
	return &Heap{threshold: initialGCThreshold}
}

// track registers obj with the heap so the next collection can find it,
// and returns obj unchanged so allocation sites can wrap their
// constructor call directly: h.track(&Array{Elems: elems}).
func track[T gcObject](h *Heap, obj T) T {
	h.objects = append(h.objects, obj)
	h.allocated += objSize(obj)
	return obj
}

// objSize is a coarse per-kind size estimate good enough to pace
// collections; it does not need to be exact.
func objSize(obj gcObject) int64 {
	switch v := any(obj).(type) {
	case *Array:
		return int64(24 + 8*len(v.Elems))
	case *Struct:
		return int64(24 + 8*len(v.Fields))
	case *Enum:
		return int64(24 + 8*len(v.Payload))
	case *Closure:
		return int64(16 + 8*len(v.Upvalues))
	default:
		return 32
	}
}

// maybeCollect runs a collection if accumulated allocation has crossed the
// current threshold, rooted at every register bank the given frames still
// have live. It is called between bytecode dispatch steps, never mid
// instruction, so no register window is half-written when it runs.
func (h *Heap) maybeCollect(frames []*Frame) {
	if h.allocated < h.threshold {
		return
	}
	h.collect(frames)
	// If the live set is still a large fraction of the threshold, double it
	// so pathological allocate/collect thrashing backs off geometrically,
	// mirroring the doubling growth strategy spec.md calls for.
	if h.allocated*2 > h.threshold {
		h.threshold *= 2
	}
}

func (h *Heap) collect(frames []*Frame) {
	for _, obj := range h.objects {
		obj.header().marked = false
	}

	var mark func(Value)
	mark = func(v Value) {
		obj, ok := v.(gcObject)
		if !ok || obj == nil {
			return
		}
		hdr := obj.header()
		if hdr.marked {
			return
		}
		hdr.marked = true
		obj.children(mark)
	}

	for _, fr := range frames {
		fr.markRoots(mark)
	}

	live := h.objects[:0]
	var liveBytes int64
	for _, obj := range h.objects {
		if obj.header().marked {
			live = append(live, obj)
			liveBytes += objSize(obj)
		}
	}
	h.objects = live
	h.allocated = liveBytes
}
