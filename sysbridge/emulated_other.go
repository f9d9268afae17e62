//go:build !linux

package sysbridge

func platformEntries() []Entry {
	return nil
}
