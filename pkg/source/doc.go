// Package source provides variant sources for the variants resolver: an
// in-memory copy-on-write store, a scoped layered source with provenance
// traces, and a file-backed source that reloads on change.
//
// Every source publishes immutable variants.Assignments views. Writers build
// a new view and swap it in atomically, so readers never block and a pinned
// resolver keeps observing the view it started with.
package source
