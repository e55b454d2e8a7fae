// Package store declares the persistence contracts of the course marketplace:
// one interface per aggregate (users, catalog, enrollments, ledger, reviews,
// notifications, webinars), the sentinel errors every implementation returns,
// and UnitOfWork for grouping writes into one atomic step.
package store
