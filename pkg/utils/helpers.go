package utils

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var (
	NullEthereumAddress    = "0000000000000000000000000000000000000000"
	NullEthereumAddressHex = fmt.Sprintf("0x%s", NullEthereumAddress)
)

var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func IsValidAddress(a string) bool {
	return addressRegex.MatchString(a)
}

func AreAddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

func ConvertBytesToString(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func Map[A any, B any](coll []A, mapper func(i A, index uint64) B) []B {
	out := make([]B, len(coll))
	for i, item := range coll {
		out[i] = mapper(item, uint64(i))
	}
	return out
}

func Filter[A any](coll []A, criteria func(i A) bool) []A {
	out := make([]A, 0)
	for _, item := range coll {
		if criteria(item) {
			out = append(out, item)
		}
	}
	return out
}

func Reduce[A any, B any](coll []A, processor func(acc B, i A) B, initialState B) B {
	val := initialState
	for _, item := range coll {
		val = processor(val, item)
	}
	return val
}

// Chunk splits coll into slices of at most chunkSize elements, preserving order.
func Chunk[A any](coll []A, chunkSize int) [][]A {
	if chunkSize <= 0 {
		return [][]A{coll}
	}
	chunks := make([][]A, 0)
	for i := 0; i < len(coll); i += chunkSize {
		end := i + chunkSize
		if end > len(coll) {
			end = len(coll)
		}
		chunks = append(chunks, coll[i:end])
	}
	return chunks
}
