// Package core provides the ingestion, cleaning, projection and export
// pipeline for tabular files.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the sweep CLI and tests without
// modification. It never touches the filesystem or network; callers hand
// it bytes and receive bytes.
//
// # Data Model
//
// A [Dataset] is an ordered set of uniquely named, equal-length columns of
// [Cell] values. A cell is a number, text, or missing. Datasets are never
// modified; each transformation returns a new one.
//
// # Pipeline
//
// Each uploaded [FileUnit] moves through a [Pipeline]:
//
//  1. [Pipeline.Decode] parses CSV or Excel bytes via the [Codec]
//  2. [Pipeline.Clean] removes duplicate rows or fills numeric gaps with
//     the column mean, any number of times
//  3. [Pipeline.Project] keeps a subset of columns in a chosen order
//  4. [Pipeline.Export] encodes the result as CSV or Excel
//
// [Runner] carries a batch of files through the same steps, in parallel,
// isolating failures per file.
//
// # Error Handling
//
// Each failure has a typed error ([UnsupportedFormatError], [DecodeError],
// [EmptyNumericColumnError], [UnknownColumnError], [EncodeError]).
// [MapError] turns any of them into a user-facing message with a support
// code:
//
//   - FMT001: unsupported file type
//   - FILE001-FILE005: file errors (size, decode, encoding, empty)
//   - CLN001-CLN002: cleaning errors
//   - COL001-COL002: column selection errors
//   - EXP001: export errors
//   - UPL002-UPL005: busy, cancelled, timed out
//
// # Audit Logging
//
// Every pipeline step can be recorded through an [AuditRecorder]. Entries
// hold file names and row/column counts, never cell values. Old entries
// are purged by [StartRetentionScheduler].
package core
