// Package domain contains the core domain entities and value objects for assetcdn.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Asset]: Metadata of a published asset (path, size, modification time, media class)
//   - [MediaClass]: Closed set of recognized media classes with a total mapping
//     from content types and file extensions
//   - [DeliveryEvent]: Immutable record of an upload outcome queued for notification
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
