// Package protocol implements the binary wire format between a live
// session and its thin client: varint-based primitives, server frames
// carrying the initial document and subsequent mutation patches, and
// client frames carrying user events. Decoding enforces allocation and
// count limits so a malicious peer cannot force large allocations with
// small inputs.
package protocol
