// Package vm implements the playlang execution engine.
//
// This package contains:
//   - The instruction set and its metadata table
//   - The execution context: value stack, return stack, block outcomes and register
//   - Stack effects for every non-control instruction
//   - The engine, which drives control flow over a program
//   - Listings, block checks and CBOR state snapshots
package vm
