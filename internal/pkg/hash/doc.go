// Package hash provides password hashing and verification.
//
// Only the hash is stored; user input is checked by comparing the plaintext
// against the stored hash. Plaintexts are never logged or persisted here.
package hash
