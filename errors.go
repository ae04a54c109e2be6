// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// errors.go — sentinel error variables returned by the public framewire API,
// covering frame validation, cell tagging, payload decoding, wire codecs and
// the tiered payload store.

// Package framewire converts tabular frames (typed cells, duplicate labels,
// multi-level row and column indexes, nested values) into a JSON-safe
// payload and back without loss, and stores encoded frames across an
// in-memory, Redis and PostgreSQL tier.
package framewire

import "errors"

// Frame errors
var (
	ErrInvalidFrame     = errors.New("framewire: invalid frame")
	ErrUnsupportedValue = errors.New("framewire: unsupported cell value")
	ErrFrameMismatch    = errors.New("framewire: frames differ")
)

// Payload errors
var (
	ErrMalformedPayload   = errors.New("framewire: malformed payload")
	ErrUnsupportedVersion = errors.New("framewire: unsupported payload version")
)

// Wire errors
var (
	ErrEncodeFailed = errors.New("framewire: failed to encode payload")
	ErrDecodeFailed = errors.New("framewire: failed to decode payload")
	ErrUnknownCodec = errors.New("framewire: unknown codec")
)

// Store errors
var (
	ErrNotFound      = errors.New("framewire: frame not found")
	ErrInvalidKey    = errors.New("framewire: invalid frame key")
	ErrL2Unavailable = errors.New("framewire: L2 Redis unavailable")
	ErrL3Unavailable = errors.New("framewire: L3 Postgres unavailable")
	ErrUnavailable   = errors.New("framewire: store closed")
)

// Config errors
var (
	ErrInvalidConfig = errors.New("framewire: invalid configuration")
)
