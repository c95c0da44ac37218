// Package clock provides a tiny time abstraction.
//
// Business logic depends on Clocker instead of calling time.Now directly, so
// tests can freeze and advance time with Fake.
package clock
