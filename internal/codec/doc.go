// Package codec maps the flat key/value string onto typed entries and back.
//
// The flat string is a sequence of id=value segments separated by ';'. A
// value may itself be JSON, or a container of sub-entries packed as
// k=v segments joined by '&':
//
//	name=ada;age=36;tags=["a","b"];addr=city=Paris&zip=75001
//
// # Decoding
//
// Decode splits the flat string into scalar entries, preserving order.
// Unravel then reclassifies scalars through an ordered list of classifiers
// (JSON first, container second). A classifier either matches or reports
// NotApplicable; parse failures are the designed fallback, not errors.
//
// # Encoding
//
// The Store family validates boundary Records through the ir constructors,
// then appends to the flat string with one whole read and one whole write.
// Batch stores validate everything before the single write, so a bad item
// commits nothing.
//
// # Wire format limits
//
// ';', '=' and '&' are not escaped. Values carrying them do not round-trip;
// writes that would be lossy are logged and still performed so the format
// stays compatible with existing stores.
//
// The Codec performs read-modify-write without locking. Concurrent writers
// get last-writer-wins from the underlying FlatStore.
package codec
