// Package database provides the PostgreSQL connection pool for the tick
// store and the startup schema bootstrap (tick table plus symbol/time
// index, created if missing).
package database
