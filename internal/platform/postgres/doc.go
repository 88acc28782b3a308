// Package postgres provides PostgreSQL implementations of the store
// interfaces. All stores operate over store.DBTX so they work with a
// *sql.DB or a transaction interchangeably, and map driver errors to the
// sentinel errors defined in the store package.
package postgres
