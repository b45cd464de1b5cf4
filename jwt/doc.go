// Package jwt signs and verifies the per-namespace tokens that back every token
// handle, and computes the SHA-256 fingerprints used to key token records.
package jwt
