// Package xdr provides XDR (External Data Representation) encoding and
// decoding per RFC 4506.
//
// XDR is the serialization format used by ONC RPC. Every value occupies a
// multiple of four bytes on the wire:
//   - Big-endian byte order for all multi-byte integers and floats
//   - Variable-length data is preceded by a 4-byte length
//   - Strings and opaque data are padded with zero bytes to 4-byte boundaries
//   - Discriminated unions carry a signed 32-bit discriminant before the arm
//
// Types take part in encoding by implementing XdrEncoder and XdrDecoder.
// Structs compose field codecs in declaration order; the helpers in this
// package cover primitives, opaque data, strings, arrays and unions. Code
// emitted by an IDL compiler is expected to follow the same contract.
//
// Reference: RFC 4506 - XDR: External Data Representation Standard
// https://tools.ietf.org/html/rfc4506
package xdr
