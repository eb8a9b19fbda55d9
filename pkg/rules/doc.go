// Package rules computes variant assignments from expressions evaluated over
// an experiment unit's attributes. Expressions run on expr, CEL or, with the
// js_eval build tag, goja.
//
// Every engine exposes the same helpers for deterministic assignment:
//
//	bucket(unit, "home-color", 100) < 50
//	pick(unit, "home-color", ["#FF0000", "#0000FF"])
//	rollout(unit, "new-hero", 10)
//
// The same unit and salt always land in the same bucket, so a user keeps its
// variant across processes and restarts.
package rules
