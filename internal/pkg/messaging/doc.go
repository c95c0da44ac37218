// Package messaging provides a broker-agnostic API for publishing and
// consuming messages over NATS, Kafka, NSQ or an in-process broker.
//
// Business code depends on Publisher/Consumer only, so the broker is picked
// by configuration (see NewFromDriver).
package messaging
