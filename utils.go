// Copyright (c) 2025 Cubyte.online under the AGPL License

package asch

import (
	"bytes"
	"unsafe"
)

const (
	end     = "\x00"
	endChar = '\x00'
)

func getCString(slice []byte) string {
	return string(bytes.TrimRight(slice, end))
}

// safeString terminates s for the C side.
func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

// sliceUint32 reinterprets a SPIR-V byte stream as words.
func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}
