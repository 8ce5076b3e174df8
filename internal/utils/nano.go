package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

const nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	// NanoidSize is the length of report IDs.
	NanoidSize = 21
	// ShortNanoidSize is the length of local-only IDs such as queue entries.
	ShortNanoidSize = 12
)

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func ShortNanoID() string {
	return NanoIDSize(ShortNanoidSize)
}

func NanoIDSize(size int) string {
	if size <= 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}
