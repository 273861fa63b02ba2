// Package codegen produces short numeric verification codes from a
// cryptographically secure random source. Codes are uniformly distributed and
// zero-padded to a fixed length, so "042817" is as likely as "942817".
package codegen
