// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [AssetStore]: Reads and publishes assets under the asset root
//
// # Usage
//
// The delivery packages depend only on these interfaces. Infrastructure
// adapters (internal/adapters) implement them with concrete implementations
// (the file system store in internal/adapters/fs).
//
// This separation enables:
//   - Testing delivery logic with mock implementations
//   - Swapping infrastructure without changing business logic
//   - Clear boundaries and dependency direction
package ports
