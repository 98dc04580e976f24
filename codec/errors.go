// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
)

// Codec errors. ErrTruncatedLength is a more specific ErrIncompleteMessage:
// errors.Is(ErrTruncatedLength, ErrIncompleteMessage) holds.
var (
	ErrIncompleteMessage = errors.New("incomplete message")
	ErrTruncatedLength   = fmt.Errorf("%w: truncated length field", ErrIncompleteMessage)
	ErrMalformedVarint   = errors.New("malformed variable byte integer")
	ErrInvalidUTF8       = errors.New("invalid UTF-8 string")
	ErrFieldTooLarge     = errors.New("field exceeds 65535 bytes")
)

// FieldTooLargeError reports a length-prefixed field that does not fit
// into its 2-byte length prefix.
type FieldTooLargeError struct {
	Size int
}

func (e *FieldTooLargeError) Error() string {
	return fmt.Sprintf("field of %d bytes exceeds %d bytes", e.Size, MaxFieldSize)
}

func (e *FieldTooLargeError) Unwrap() error {
	return ErrFieldTooLarge
}
