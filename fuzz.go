package il2cppcore

// Fuzz is the github.com/dvyukov/go-fuzz entry point for the full Dump
// pipeline. data is split in half: the first half is treated as the
// binary, the second as global-metadata.dat, so one corpus entry can
// exercise both decoders and the registration/resolver/output stages in
// one pass.
func Fuzz(data []byte) int {
	if len(data) < 2 {
		return 0
	}
	mid := len(data) / 2
	binary, meta := data[:mid], data[mid:]

	artifacts, err := Dump(binary, meta, DefaultConfig())
	if err != nil {
		return 0
	}
	if len(artifacts) == 0 {
		return 0
	}
	return 1
}
