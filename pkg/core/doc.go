// Package core defines the shared language of the plmap system.
//
// This package contains:
//   - Source units and their signatures (SourceUnit, Signature, Parameter)
//   - References between units and database objects (Reference)
//   - Diagnostics and their severities (Diagnostic, Severity)
//   - Content normalisation and hashing used for stable ids and cache keys
//
// The Golden Rule: pkg/core imports ONLY pkg/token, stdlib, and the hashing/text
// libraries it needs. All other packages depend on core, not the reverse.
package core
