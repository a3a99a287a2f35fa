package metadata

// Fuzz is the github.com/dvyukov/go-fuzz entry point: run the full
// metadata decode over arbitrary bytes and report whether the input was
// accepted.
func Fuzz(data []byte) int {
	m, err := Decode(data, nil)
	if err != nil {
		return 0
	}
	if m == nil {
		return 0
	}
	return 1
}
