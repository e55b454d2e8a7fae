// Package testdb provides utilities for database integration tests.
//
// Tests run against the database named by DATABASE_URL and are skipped when it
// is unset. The schema is created from the embedded goose migrations, and each
// test body runs inside a transaction that is rolled back when it returns, so
// tests can run in parallel without cleaning up after themselves.
//
//	func TestLedger(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        ledger := postgres.NewPostgresLedgerStore(tx, nil)
//	        ...
//	    })
//	}
package testdb
