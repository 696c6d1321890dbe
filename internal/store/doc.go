// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying storage mechanism (PostgreSQL,
// Redis, object storage or process memory) from the application's core
// logic. Each store offers single-key durability only; no operation spans
// more than one key transactionally unless documented.
package store
