// Package identity reads principals (super admins, tenant admins, office users
// and users) from their backing tables. It never mutates them.
package identity
