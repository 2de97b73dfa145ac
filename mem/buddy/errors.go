package buddy

import "errors"

var (
	// ErrNoSpace indicates no block large enough is available.
	ErrNoSpace = errors.New("buddy: no free block large enough")

	// ErrTooLarge indicates a request larger than the whole managed span.
	ErrTooLarge = errors.New("buddy: request exceeds allocator size")

	// ErrBadSize indicates a negative request size.
	ErrBadSize = errors.New("buddy: size must be >= 0")

	// ErrBadRef indicates a ref outside the buffer or not on a block boundary.
	ErrBadRef = errors.New("buddy: bad block reference")

	// ErrBlockTooSmall indicates a minimum block smaller than a free-list link.
	ErrBlockTooSmall = errors.New("buddy: minimum block smaller than free-list link")

	// ErrBufferTooSmall indicates a buffer that cannot hold one minimum block.
	ErrBufferTooSmall = errors.New("buddy: buffer smaller than minimum block")

	// ErrSizeNotMultiple indicates a span that is not a multiple of the minimum block.
	ErrSizeNotMultiple = errors.New("buddy: size not a multiple of minimum block")
)
