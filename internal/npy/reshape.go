package npy

// Nest converts the flat buffer into a nested structure matching Shape in
// row-major order: rank 0 yields the single scalar, rank 1 the typed flat
// slice, rank >= 2 a []any of Shape[0] sub-nests each covering a contiguous
// product(Shape[1:]) slice of the buffer. Shape/length consistency is an
// invariant established by Decode and is not re-checked here.
//
// Leaf slices alias the Array's buffer; callers treat the result as
// read-only, matching the immutability of Array itself.
func (a *Array) Nest() any {
	return a.nest(0, a.Shape)
}

func (a *Array) nest(start int, shape []int) any {
	switch len(shape) {
	case 0:
		return a.scalarAt(start)
	case 1:
		return a.flatSlice(start, start+shape[0])
	}

	stride := 1
	for _, d := range shape[1:] {
		stride *= d
	}

	out := make([]any, shape[0])
	for i := range out {
		out[i] = a.nest(start+i*stride, shape[1:])
	}
	return out
}

func (a *Array) scalarAt(i int) any {
	switch a.DType {
	case Float32:
		return a.Float32s[i]
	case Float64:
		return a.Float64s[i]
	case Int32:
		return a.Int32s[i]
	case Uint8:
		return a.Uint8s[i]
	}
	return nil
}

func (a *Array) flatSlice(lo, hi int) any {
	switch a.DType {
	case Float32:
		return a.Float32s[lo:hi]
	case Float64:
		return a.Float64s[lo:hi]
	case Int32:
		return a.Int32s[lo:hi]
	case Uint8:
		return a.Uint8s[lo:hi]
	}
	return nil
}
