// Package ir provides the data model types for flatkv.
//
// This package contains type definitions and constructors only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// data model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Entry kind and value shape always agree; entries are built only
//     through the constructors in entry.go
//   - Value is a sealed union; decoded JSON never leaks as bare any
//   - Object keys are iterated in RFC 8785 order for deterministic output
//   - Boundary input (Record) is validated once, into a ValidationError
package ir
