package store

import "context"

// Repositories bundles every store bound to the same connection or transaction.
type Repositories struct {
	Users         UserStore
	Courses       CourseStore
	Sections      SectionStore
	Lectures      LectureStore
	Reviews       ReviewStore
	Ledger        LedgerStore
	Enrollments   EnrollmentStore
	Notifications NotificationStore
	Webinars      WebinarStore
}

// RepoFn is a unit of work executed against transaction-scoped repositories.
type RepoFn func(ctx context.Context, repos Repositories) error

// UnitOfWork hands out repositories and runs groups of operations atomically.
type UnitOfWork interface {
	// Repositories returns stores that operate outside any transaction.
	Repositories() Repositories

	// WithinTx runs fn in a single transaction. Every write made through the
	// repositories passed to fn commits together, or none does when fn
	// returns an error or panics.
	WithinTx(ctx context.Context, fn RepoFn) error
}
