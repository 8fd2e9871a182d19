// Package jackalope is a content repository client modelled on JCR (JSR-283).
//
// A [Repository] wraps a transport and opens a [Session] per user and workspace. The
// session exposes the content tree as [Node] and [Property] items, buffers every change
// locally and dispatches all of them in one change set on [Session.Save].
//
// # Transports
//
// Provide an endpoint URL to [Connect] so that it chooses the right backend for you:
//
//	mem://                   in-memory, for tests and embedding
//	sqlite:///path/to/db     a local SQLite database
//	file:///path/to/dir      a YAML snapshot directory, shareable between processes
//	ws://host:port/rpc       a remote repository served by wsrpc.Handler
//
// Use [New] to wire any other implementation of [transport.Transport].
//
// # Node types
//
// Every workspace has a [nodetype.Manager] reachable through [Workspace.NodeTypeManager].
// Types are fetched from the transport the first time they are needed and cached for the
// lifetime of the session.
//
// # Errors
//
// Every error wraps one of the Err* kinds declared in this package, so callers branch with
// errors.Is. Features the client does not support, such as locking, versioning and mixin
// mutation, fail with [ErrNotImplemented].
package jackalope
