// Package pgs reads and writes Blu-ray Presentation Graphics (PGS, ".sup")
// subtitle streams.
//
// A stream is a flat sequence of segments. Every segment starts with a
// 13-byte big-endian header followed by a type-specific body:
//
//	["PG"(2)][PTS(4)][DTS(4)][Type(1)][BodyLength(2)][Body(BodyLength)]
//
// Five body kinds exist and are modelled as the sealed Body interface:
//   - PresentationComposition (0x16): screen size, composition number and
//     state, and the positioned composition objects
//   - WindowDefinition (0x17): the on-screen windows objects are drawn in
//   - ObjectDefinition (0x15): object size and run-length encoded pixels
//   - PaletteDefinition (0x14): colour lookup table
//   - EndOfDisplaySet (0x80): terminates a display set
//
// Palette entries and object pixel data are carried as opaque bytes; the
// package never interprets them. Decoding followed by encoding reproduces
// the input byte for byte for any segment whose fields were left alone.
//
// Errors are classified with three sentinels that callers test with
// errors.Is: ErrBitstream for malformed input, ErrTransport for failures of
// the underlying reader or writer, and ErrFormatViolation for cross-segment
// invariants checked by higher layers.
package pgs
