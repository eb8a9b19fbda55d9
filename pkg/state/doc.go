// Package state persists per-scope variant overrides and turns them into a
// layered variants.Source.
//
//   - Store only loads/saves the overrides of a single Ref.
//   - Loader loads the overrides of several scopes for a domain and stacks
//     them with source.NewLayered, strongest scope first.
//   - Loader.Mutate applies a read-modify-write under optimistic concurrency:
//     a stale ETag fails with ErrETagMismatch instead of overwriting.
//
// Data flow:
//
//	Store -> Loader -> source.NewLayered(...) -> variants.NewResolver(...)
//
// Provenance:
//
//	Meta.SnapshotID is carried onto each source.Layer and is visible through
//	Resolver.Trace.
//
// Deterministic keys:
//
//	Ref.Identifier() gives the canonical storage key, e.g. "global/home" or
//	"user/u42/home". Adapters for databases or object stores should key on it.
package state
