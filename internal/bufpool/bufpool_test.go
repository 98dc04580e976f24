// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bufpool

import (
	"sync"
	"testing"
)

func TestGetReturnsEmptySlice(t *testing.T) {
	b := Get()
	*b = append(*b, "hello"...)
	Put(b)

	b2 := Get()
	if len(*b2) != 0 {
		t.Fatalf("expected empty slice, got %d bytes", len(*b2))
	}
	Put(b2)
}

func TestPutDiscardsOversizedSlice(t *testing.T) {
	b := Get()
	*b = append(*b, make([]byte, maxPooledCap+1)...)
	Put(b) // should be discarded, not panic
}

func TestPutNil(t *testing.T) {
	Put(nil)
}

func TestConcurrentGetPut(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := Get()
			*b = append(*b, "concurrent test data"...)
			Put(b)
		}()
	}
	wg.Wait()
}

func TestGetReturnsUsableSlice(t *testing.T) {
	b := Get()
	defer Put(b)

	*b = append(*b, "test"...)
	if string(*b) != "test" {
		t.Fatalf("expected %q, got %q", "test", string(*b))
	}
	if cap(*b) < defaultCap {
		t.Fatalf("expected capacity of at least %d, got %d", defaultCap, cap(*b))
	}
}
