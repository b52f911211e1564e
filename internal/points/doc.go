// Package points holds the bridge's addressable point tree.
//
// A point is a named, individually readable or writable value such as
// "meta.display.brightness" or "apps.<uuid>.activate". Every point carries
// its current value and an acknowledgement flag: true means the value was
// confirmed by the device, false means it is a pending user write that the
// command dispatcher has not yet forwarded.
//
// # Components
//
//   - Registry: in-memory cache over a Repository, with change observers
//   - SQLiteRepository: persistence in the "points" table
//   - Catalogue: FixedDefinitions and WidgetDefinitions
//   - HistoryRecorder: observer that forwards acknowledged values to a
//     time-series writer
//
// # Lifecycle
//
// Fixed points are ensured at startup. Widget points are ensured when the
// apps refresh first sees a widget and are never removed. Ensure never
// overwrites an existing point, so re-discovery is a no-op.
//
// # Observers
//
// Subscribe registers a callback invoked after each persisted change.
// Writes that change neither value nor ack are suppressed, so a refresh
// that finds nothing new produces no notifications.
package points
