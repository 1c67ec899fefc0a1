package memory

import "errors"

// The following errors may be returned by LoadImage.
var (
	// ErrImageOpen indicates the image file could not be opened or read.
	ErrImageOpen = errors.New("memory: cannot open image")

	// ErrImageTooBig indicates the image file is larger than memory.
	ErrImageTooBig = errors.New("memory: program too big")
)
