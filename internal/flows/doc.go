// Package flows holds the sign-in, refresh, sign-out and authenticate
// orchestrations behind the Engine.
//
// Each Run* function takes an explicit Deps struct of functions and
// interfaces, so flows own no resources and keep no state between calls. The
// engine builds the Deps for a scope and maps the returned errors. This
// package must not import the root package.
package flows
