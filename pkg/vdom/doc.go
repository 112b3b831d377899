// Package vdom implements the element model, the virtual-node tree, and
// the reconciler that transforms one committed tree into the next with
// minimal mutations to a live dom.Document.
//
// Application code builds immutable Element trees (Div, Span, Comp,
// Fragment, Catch, Frame, ...). A Root normalizes elements into VNodes,
// diffs them against the previously committed tree, and applies the
// difference to the document, or adopts pre-existing server-rendered
// markup when hydrating. Components get a two-phase setup/render
// lifecycle with scheduled re-renders coalesced by the Scheduler.
package vdom
