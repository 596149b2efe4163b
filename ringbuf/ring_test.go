// Copyright (c) 2025 BVK Chaitanya

package ringbuf

import (
	"errors"
	"os"
	"slices"
	"testing"
)

func TestNewInvalid(t *testing.T) {
	for _, c := range []int{0, -1} {
		if _, err := New[int](c); !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("capacity %d: wanted ErrInvalid, got %v", c, err)
		}
	}
}

func TestEviction(t *testing.T) {
	r, err := New[string](3)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []string{"A", "B", "C", "D"} {
		r.Append(v)
	}
	if got, want := r.Snapshot(), []string{"B", "C", "D"}; !slices.Equal(got, want) {
		t.Fatalf("wanted %v, got %v", want, got)
	}
	if last, ok := r.Last(); !ok || last != "D" {
		t.Fatalf("wanted D, got %q (%v)", last, ok)
	}
}

func TestLastCapacityItems(t *testing.T) {
	for capacity := 1; capacity <= 7; capacity++ {
		for n := 0; n <= 3*capacity; n++ {
			r, err := New[int](capacity)
			if err != nil {
				t.Fatal(err)
			}
			var all []int
			for i := 0; i < n; i++ {
				r.Append(i)
				all = append(all, i)
			}

			want := all[max(0, n-capacity):]
			got := r.Snapshot()
			if len(got) != min(n, capacity) {
				t.Fatalf("cap=%d n=%d: wanted length %d, got %d", capacity, n, min(n, capacity), len(got))
			}
			if !slices.Equal(got, want) {
				t.Fatalf("cap=%d n=%d: wanted %v, got %v", capacity, n, want, got)
			}
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r, _ := New[int](2)
	r.Append(1)
	r.Append(2)

	snap := r.Snapshot()
	r.Append(3)
	r.Append(4)

	if !slices.Equal(snap, []int{1, 2}) {
		t.Fatalf("snapshot changed after appends: %v", snap)
	}
	if got := r.Snapshot(); !slices.Equal(got, []int{3, 4}) {
		t.Fatalf("wanted [3 4], got %v", got)
	}
}

func TestReset(t *testing.T) {
	r, _ := New[int](4)
	for i := 0; i < 6; i++ {
		r.Append(i)
	}
	r.Reset()
	if r.Len() != 0 || r.Cap() != 4 {
		t.Fatalf("wanted empty ring of capacity 4, got len=%d cap=%d", r.Len(), r.Cap())
	}
	if _, ok := r.Last(); ok {
		t.Fatalf("wanted no last element after reset")
	}
	r.Append(9)
	if got := r.Snapshot(); !slices.Equal(got, []int{9}) {
		t.Fatalf("wanted [9], got %v", got)
	}
}
