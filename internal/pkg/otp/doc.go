// Package otp generates the one-time passcodes sent out-of-band during
// registration. Codes are short, uppercase and alphanumeric, drawn from
// crypto/rand over an alphabet without look-alike characters.
package otp
