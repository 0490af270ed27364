// Package database provides the PostgreSQL connection pool, embedded schema
// migrations, and the repositories for contact messages and blog posts.
package database
