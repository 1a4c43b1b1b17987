// Package database manages the PostgreSQL pool that backs notification
// history.
//
// History is optional. When enabled, every in-app notification is appended
// to the notification_history table; rows are never updated.
package database
