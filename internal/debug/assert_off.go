//go:build !assert

package debug

// Enabled reports whether the binary was built with assertions.
const Enabled = false

// Assert is a no-op without the assert build tag.
func Assert(bool, any) {}

// Assertf is a no-op without the assert build tag.
func Assertf(bool, string, ...any) {}
