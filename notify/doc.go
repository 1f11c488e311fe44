// Package notify delivers GID to LID mapping changes to registered
// listeners in an order equivalent to serial-number order, even though the
// feed pipeline completes puts and removes concurrently and out of order.
//
// The handler tracks a pending-remove entry per GID while removes are in
// flight. The entry decides, per completion, whether a notification is
// delivered now or suppressed; nothing is ever buffered or delivered later.
//
//   - A put completing behind an already registered later remove is
//     suppressed: listeners already saw the document disappear.
//   - A second remove on the same GID is only re-announced when an
//     intervening put made listeners believe the document is present again.
//
// Contract violations by the caller (non-monotonic serial numbers, a put and
// a remove sharing a serial, completing an unregistered remove) panic: they
// indicate a bug in the single upstream authority that stamps serials, not a
// runtime condition to recover from.
package notify
