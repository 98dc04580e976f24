// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package bufpool pools scratch byte slices used to assemble outgoing packets.
package bufpool

import "sync"

const (
	defaultCap   = 512
	maxPooledCap = 64 * 1024
)

var pool = sync.Pool{New: func() any {
	b := make([]byte, 0, defaultCap)
	return &b
}}

// Get returns an empty slice from the pool. Callers append to *b and must
// store the grown slice back before calling Put.
func Get() *[]byte {
	b := pool.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

// Put returns b to the pool. Slices grown past 64KB are dropped so a single
// large packet does not pin memory.
func Put(b *[]byte) {
	if b == nil || cap(*b) > maxPooledCap {
		return
	}
	pool.Put(b)
}
