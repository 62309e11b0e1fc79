package utils

import "unsafe"

// BytesToString views a byte slice as a string without copying. The caller
// must not mutate b afterwards; the counter and key paths that use this only
// read the bytes once, immediately.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return *(*string)(unsafe.Pointer(&b))
}
