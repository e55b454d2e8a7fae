// Package memory implements every store interface on in-process maps.
//
// It backs service and API tests and lets the server run locally without a
// database. UnitOfWork.WithinTx gives the same all-or-nothing guarantee as the
// PostgreSQL implementation: the closure works on a private copy of the data,
// which replaces the live data only when the closure succeeds.
package memory
