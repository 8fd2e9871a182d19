// Package contrib holds tools and test helpers built on top of the jackalope client.
//
// Nothing here is part of the core library's compatibility guarantees; these packages
// may change without following semantic versioning.
//
// [github.com/jackalope/jackalope.go/contrib/reposerve] serves a local repository backend
// (in-memory, SQLite or a snapshot directory) to remote clients over websocket, and
// [github.com/jackalope/jackalope.go/contrib/testenv] opens repositories and sessions for
// tests and examples from the environment.
package contrib
