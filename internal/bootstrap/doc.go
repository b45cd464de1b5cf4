// Package bootstrap turns process environment into a running Engine: it loads
// Settings, initialises the logger, connects Redis and Postgres and picks the
// session store backend.
package bootstrap
