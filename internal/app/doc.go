// Package app composes the explorer: it wires the read services over a
// storage backend and exposes them through the HTTP handler.
//
// Domain models live in domain/, store interfaces and their memory and
// postgres implementations in storage/, the read logic in services/ and the
// routes in httpapi/. Process wiring (database, cache, middleware, server)
// is done one level up in runtime/.
package app
