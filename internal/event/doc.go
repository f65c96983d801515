// Package event provides a generic tagged value tree for inbound platform
// events.
//
// Marketplace events arrive as untyped JSON whose key names and nesting vary
// by client and protocol version. There is no schema to decode into, so the
// tree is modeled as a sealed Value interface with one variant per JSON
// shape (null, bool, int, float, string, array, object) plus explicit,
// named traversal helpers for the handful of paths the classifier knows
// about. Unknown shapes are never an error: lookups on the wrong variant
// return the zero value, and whole-tree flattening gives downstream regex
// scanning a last-resort view of everything the event carries.
package event
