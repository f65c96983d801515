// Package catalog provides the domain record types for auto-delivery
// fulfillment.
//
// This package contains type definitions only. All other internal packages
// import catalog; catalog imports nothing internal. This keeps the record
// types the foundational layer with no circular dependencies.
//
// Rules and cards are created and edited by an external admin surface and
// are read-only to the engine, except for two mutations the executor owns:
// the rule's delivery counter and a data card's stock lines.
package catalog
