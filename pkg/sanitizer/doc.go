// Package sanitizer normalizes reservation input before validation.
//
// All normalization functions are idempotent. Invalid input is returned as an
// empty string or dropped from a slice rather than reported as an error; the
// validator decides whether what is left is acceptable.
package sanitizer
