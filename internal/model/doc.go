// Package model defines the wire envelope and shared data types used across the
// real-time notification client.
//
// Conventions:
//   - Topics: the envelope "type" field doubles as the routing key
//   - Timestamps: ISO-8601 strings assigned by the server, compared as epoch milliseconds
//   - IDs: uuid.UUID for notifications and subscription tokens
package model
