/*
Package debug provides conditional runtime assertions.

To enable assertions, build with the assert tag:

	go test -tags assert ./...

Without the tag Assert compiles to nothing and Enabled is false. Debug-only
behaviour elsewhere (zeroing an arena on reset, double-free detection in the
buddy allocator) keys off Enabled so it is also removed from release builds.
*/
package debug
