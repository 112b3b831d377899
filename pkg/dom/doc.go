// Package dom provides the in-memory live document tree that the
// reconciler mutates and the hydration cursor walks.
//
// The tree is deliberately close to the browser model: elements carry both
// attributes (serialized to HTML) and properties (runtime state such as
// value or checked), children are ordered, comments are first-class, and
// every structural or attribute change is appended to the owning
// Document's mutation log. The log is what live sessions ship to a thin
// client, and what tests use to assert that hydration adopted existing
// markup instead of rebuilding it.
//
// Server-rendered HTML is loaded with ParseInto, which wraps
// golang.org/x/net/html fragment parsing.
package dom
