// Package kvcache implements a typed, provider-agnostic cache façade.
//
// A Cache[K, V] translates typed operations into binary key/value operations
// on a provider.Provider (in-process map, Ristretto, BigCache, Redis...).
// Every operation returns a Result; failures are values, never panics.
//
// Components:
//   - KeyEncoder[K]: K -> binary key (string of raw bytes).
//   - Codec[V]: V <-> []byte.
//   - Provider: byte store with per-entry TTL and bulk primitives.
//
// Keys:
//
//	<ns>:<encoded>  - when Options.Namespace is set
//	<encoded>       - otherwise
//
// Result codes:
//
//	SUCCESS, FAIL, NOT_FOUND, EXPIRED, ILLEGAL_ARGUMENT, EXISTS (PutIfAbsent only)
//
// Bulk calls (GetAll, PutAll, RemoveAll) issue one provider call regardless of
// key count. GetAll keys its result by the caller's typed keys; PutAll and
// RemoveAll are all-or-nothing with respect to codec failures.
package kvcache
