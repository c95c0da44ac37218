// Package mail defines the contract for sending email and an SMTP
// implementation whose every network step is bounded by the caller's context.
package mail
