// Package eidasnode implements the protocol engine and trust/correlation
// layer of a cross-border identity federation node: construction and
// validation of signed, optionally encrypted authentication messages,
// metadata-based trust resolution, and the light-token correlation
// mechanism between the generic node and country-specific modules.
//
// The root package re-exports the public surface of the internal
// packages; internal/core holds the domain model and the engine,
// internal/adapters the codec, metadata, cache, keystore, and metrics
// adapters.
package eidasnode
