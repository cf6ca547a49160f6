// Package core defines the public contract shared by every GridLens data
// source: configuration, the abstract query shape, inferred schema types,
// the normalized result shape, and the error kinds adapters report.
//
// This is the entire surface that crosses the boundary to consumers
// (dashboard, insight layer, CLI). Nothing else does.
package core
