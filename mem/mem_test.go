package mem

import (
	"errors"
	"testing"
)

func TestAllocateAndAccess(t *testing.T) {
	as := New()
	defer as.Close()

	var allocs []AllocateEvent
	as.OnAllocate.AddListener(func(e AllocateEvent) error {
		allocs = append(allocs, e)
		return nil
	})

	if err := as.Allocate(0x1000, 0x100); err != nil {
		t.Fatal(err)
	}

	if len(allocs) != 1 || allocs[0].Addr != 0x1000 || allocs[0].Size != 0x100 {
		t.Fatalf("unexpected allocation events: %v", allocs)
	}

	if err := as.Write64(0x1008, 0x1122334455667788); err != nil {
		t.Fatal(err)
	}

	v32, err := as.Read32(0x1008)
	if err != nil {
		t.Fatal(err)
	}
	if v32 != 0x55667788 {
		t.Fatalf("expected little endian low word, got 0x%x", v32)
	}

	v16, err := as.Read16(0x100e)
	if err != nil {
		t.Fatal(err)
	}
	if v16 != 0x1122 {
		t.Fatalf("expected 0x1122, got 0x%x", v16)
	}

	v8, err := as.Read8(0x1009)
	if err != nil {
		t.Fatal(err)
	}
	if v8 != 0x77 {
		t.Fatalf("expected 0x77, got 0x%x", v8)
	}
}

func TestWriteReportsOldValue(t *testing.T) {
	as := New()
	defer as.Close()

	if err := as.Allocate(0x2000, 16); err != nil {
		t.Fatal(err)
	}

	var writes []WriteEvent
	var reads []ReadEvent
	as.OnWrite.AddListener(func(e WriteEvent) error {
		writes = append(writes, e)
		return nil
	})
	as.OnRead.AddListener(func(e ReadEvent) error {
		reads = append(reads, e)
		return nil
	})

	if err := as.Write32(0x2000, 5); err != nil {
		t.Fatal(err)
	}
	if err := as.Write32(0x2000, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := as.Read32(0x2000); err != nil {
		t.Fatal(err)
	}

	if len(writes) != 2 {
		t.Fatalf("expected 2 write events, got %d", len(writes))
	}
	if writes[1].Old != 5 || writes[1].Value != 7 || writes[1].Width != 4 {
		t.Fatalf("unexpected write event: %+v", writes[1])
	}
	if len(reads) != 1 || reads[0].Value != 7 {
		t.Fatalf("unexpected read events: %+v", reads)
	}
}

func TestUnmappedAccess(t *testing.T) {
	as := New()
	defer as.Close()

	if err := as.Allocate(0x1000, 8); err != nil {
		t.Fatal(err)
	}

	_, err := as.Read64(0x1004)
	if !errors.Is(err, ErrUnmapped) {
		t.Fatalf("expected ErrUnmapped for access crossing the region end, got: %v", err)
	}

	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected *AccessError, got %T", err)
	}
	if accessErr.Addr != 0x1004 || accessErr.Width != 8 || accessErr.Write {
		t.Fatalf("unexpected access error: %+v", accessErr)
	}

	if err := as.Write8(0x5000, 1); !errors.Is(err, ErrUnmapped) {
		t.Fatalf("expected ErrUnmapped, got: %v", err)
	}

	if as.Raw(0x5000) != nil {
		t.Fatal("expected nil raw slice for unbacked address")
	}
}

func TestRaw(t *testing.T) {
	as := New()
	defer as.Close()

	if err := as.Allocate(0x1000, 0x10); err != nil {
		t.Fatal(err)
	}

	fired := false
	as.OnRead.AddListener(func(e ReadEvent) error {
		fired = true
		return nil
	})

	raw := as.Raw(0x1004)
	if len(raw) != 0xc {
		t.Fatalf("expected raw slice up to the end of the region, got %d bytes", len(raw))
	}
	raw[0] = 0xAA

	if err := as.WriteBytes(0x1005, []byte{0xBB}); err != nil {
		t.Fatal(err)
	}

	b, err := as.ReadBytes(0x1004, 2)
	if err != nil {
		t.Fatal(err)
	}
	if b[0] != 0xAA || b[1] != 0xBB {
		t.Fatalf("unexpected bytes: %v", b)
	}

	if fired {
		t.Fatal("raw access fired a read event")
	}
}

func TestAllocateMerges(t *testing.T) {
	as := New()
	defer as.Close()

	if err := as.Allocate(0x1000, 0x10); err != nil {
		t.Fatal(err)
	}
	if err := as.Write8(0x100f, 0x42); err != nil {
		t.Fatal(err)
	}

	// Touching range
	if err := as.Allocate(0x1010, 0x10); err != nil {
		t.Fatal(err)
	}
	// Overlapping range
	if err := as.Allocate(0x1008, 0x20); err != nil {
		t.Fatal(err)
	}
	// Disjoint range
	if err := as.Allocate(0x4000, 0x10); err != nil {
		t.Fatal(err)
	}

	regions := as.Regions()
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}
	if regions[0].Base != 0x1000 || regions[0].Size() != 0x28 {
		t.Fatalf("unexpected merged region 0x%x+0x%x", regions[0].Base, regions[0].Size())
	}

	v, err := as.Read8(0x100f)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x42 {
		t.Fatalf("existing byte lost after merge, got 0x%x", v)
	}

	// A word spanning the old region boundary is now a single region access
	if _, err := as.Read32(0x100e); err != nil {
		t.Fatal(err)
	}
}

func TestAllocateZeroSize(t *testing.T) {
	as := New()
	defer as.Close()

	events := 0
	as.OnAllocate.AddListener(func(e AllocateEvent) error {
		events++
		return nil
	})

	if err := as.Allocate(0x1000, 0); err != nil {
		t.Fatal(err)
	}

	if events != 1 {
		t.Fatalf("expected 1 allocation event, got %d", events)
	}
	if as.Contains(0x1000) {
		t.Fatal("zero sized allocation created a region")
	}
}

func TestAllocateOverflow(t *testing.T) {
	as := New()
	defer as.Close()

	if err := as.Allocate(0xFFFFFFFFFFFFFFF0, 0x20); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got: %v", err)
	}
}

func TestAlign(t *testing.T) {
	tests := []struct {
		a, b, up, down uint64
	}{
		{a: 0, b: 128, up: 0, down: 0},
		{a: 1, b: 128, up: 128, down: 0},
		{a: 128, b: 128, up: 128, down: 128},
		{a: 0x1001, b: 0x1000, up: 0x2000, down: 0x1000},
	}

	for _, test := range tests {
		if got := Align(test.a, test.b); got != test.up {
			t.Errorf("Align(0x%x, 0x%x) = 0x%x, expected 0x%x", test.a, test.b, got, test.up)
		}
		if got := AlignDown(test.a, test.b); got != test.down {
			t.Errorf("AlignDown(0x%x, 0x%x) = 0x%x, expected 0x%x", test.a, test.b, got, test.down)
		}
	}
}
