// Package ir provides the structural type algebra shared by every ibis package.
//
// This package contains the Type tree, the built-in constructor names, the
// textual type grammar, and the canonical JSON used for content-addressed
// digests. All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Types are plain trees: a constructor Name and ordered Args
//   - Built-in constructors live in the "ibis." namespace
//   - Rendering a parsed Type and parsing it again yields an equal Type
//   - Digests are SHA-256 over canonical JSON with a versioned domain prefix
package ir
