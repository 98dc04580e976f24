// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

// MaxFieldSize is the largest length a 2-byte length prefix can declare.
const MaxFieldSize = 65535

// AppendBytes appends field prefixed by its 2-byte big-endian length.
// It fails instead of truncating when field is longer than MaxFieldSize.
func AppendBytes(dst, field []byte) ([]byte, error) {
	v := len(field)
	if v > MaxFieldSize {
		return dst, &FieldTooLargeError{Size: v}
	}
	dst = append(dst, byte(v>>8), byte(v))
	return append(dst, field...), nil
}

// AppendString appends the UTF-8 bytes of s with a 2-byte length prefix.
func AppendString(dst []byte, s string) ([]byte, error) {
	v := len(s)
	if v > MaxFieldSize {
		return dst, &FieldTooLargeError{Size: v}
	}
	dst = append(dst, byte(v>>8), byte(v))
	return append(dst, s...), nil
}

// AppendUint16 appends num in big-endian order.
func AppendUint16(dst []byte, num uint16) []byte {
	return append(dst, byte(num>>8), byte(num))
}

// EncodeBytes returns field with its 2-byte length prefix.
func EncodeBytes(field []byte) ([]byte, error) {
	return AppendBytes(make([]byte, 0, 2+len(field)), field)
}

// EncodeString returns field with its 2-byte length prefix.
func EncodeString(field string) ([]byte, error) {
	return AppendString(make([]byte, 0, 2+len(field)), field)
}

// EncodeUint16 returns num in big-endian order.
func EncodeUint16(num uint16) []byte {
	return []byte{byte(num >> 8), byte(num)}
}

// EncodeBool returns 1 for true and 0 for false.
func EncodeBool(b bool) byte {
	if b {
		return 1
	}
	return 0
}
