package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/zircon-rv/zircon/emulator"
	"github.com/zircon-rv/zircon/riscv"
	"golang.org/x/exp/slices"
)

// Stats counts executed instructions by mnemonic.
type Stats struct {
	counts map[string]uint64
	total  uint64
}

func NewStats() *Stats {
	return &Stats{
		counts: make(map[string]uint64),
	}
}

// Attach counts every instruction the hart is about to execute.
func (s *Stats) Attach(h *emulator.Hart) {
	h.OnBeforeExecute.AddListener(func(h *emulator.Hart) error {
		inst, err := h.Current()
		if err != nil {
			return nil
		}

		s.Count(inst)
		return nil
	})
}

func (s *Stats) Count(inst riscv.Instruction) {
	s.counts[inst.Mnemonic()]++
	s.total++
}

// Total returns the amount of counted instructions.
func (s *Stats) Total() uint64 {
	return s.total
}

// Get returns the count of a single mnemonic.
func (s *Stats) Get(mnemonic string) uint64 {
	return s.counts[mnemonic]
}

type statsEntry struct {
	mnemonic string
	count    uint64
}

func (s *Stats) entries() []statsEntry {
	entries := make([]statsEntry, 0, len(s.counts))
	for m, n := range s.counts {
		entries = append(entries, statsEntry{mnemonic: m, count: n})
	}

	// Most frequent first, ties by name
	slices.SortFunc(entries, func(a, b statsEntry) int {
		if a.count != b.count {
			if a.count > b.count {
				return -1
			}
			return 1
		}
		return strings.Compare(a.mnemonic, b.mnemonic)
	})

	return entries
}

// WriteTo writes the histogram, one mnemonic per line.
func (s *Stats) WriteTo(w io.Writer) (int64, error) {
	var written int64
	n, err := fmt.Fprintf(w, "%d instructions executed\n", s.total)
	written += int64(n)
	if err != nil {
		return written, err
	}

	for _, e := range s.entries() {
		n, err := fmt.Fprintf(w, "%-10s %12d %6.2f%%\n", e.mnemonic, e.count, float64(e.count)*100/float64(s.total))
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, nil
}
