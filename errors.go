package xm

import "errors"

// Sentinel load-error kinds, per the three-way discriminator the loader
// returns: a module is either sane or it isn't, and context creation never
// exposes a partially-initialized *Context.
var (
	// ErrMalformed means preload sanity failed: wrong magic, wrong
	// version, or a truncated header.
	ErrMalformed = errors.New("xm: module data failed sanity check")

	// ErrOutOfMemory means the arena size computed by Prescan exceeds
	// math.MaxInt32 bytes, so no allocation was attempted.
	ErrOutOfMemory = errors.New("xm: arena allocation failed")

	// ErrInvalid means postload validation failed: the pattern order
	// table references a pattern that does not exist and could not be
	// trimmed away.
	ErrInvalid = errors.New("xm: module data failed postload validation")
)
