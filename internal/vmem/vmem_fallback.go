//go:build !unix

package vmem

import "fmt"

// Reserve allocates size zeroed bytes on the Go heap when mmap is not available.
func Reserve(size int) ([]byte, func() error, error) {
	if size < 0 {
		return nil, nil, fmt.Errorf("vmem: negative size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
