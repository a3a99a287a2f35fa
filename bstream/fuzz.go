package bstream

// Fuzz is the github.com/dvyukov/go-fuzz entry point for the primitive
// readers: decode, and report whether the input was accepted without a
// panic or an unbounded read.
func Fuzz(data []byte) int {
	r := New(data)
	n := 0
	for r.Remaining() > 0 {
		if _, err := r.U8(); err != nil {
			return 0
		}
		n++
	}

	r2 := New(data)
	if _, err := r2.NulStringAt(0); err == nil {
		n++
	}

	if n == 0 {
		return 0
	}
	return 1
}
