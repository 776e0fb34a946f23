// Package messaging publishes and consumes broker messages behind one API.
//
// Business code depends only on Messaging, Handler and Message, so the
// broker (Kafka, NATS, NSQ or Google Pub/Sub) is chosen by configuration.
// Brokers without native headers (NSQ) drop them on publish.
package messaging
