// Package render serializes element trees to HTML on the server. The
// output is a chunked stream: the synchronous part of the tree forms
// the first chunk, with the document head synthesized from hoisted
// elements and collected style rules, and each asynchronous frame
// contributes a later <template> chunk in the order resolutions settle.
// Hydration-marked components are bracketed with comment markers and a
// JSON payload so the client can remount them over the server markup.
package render
