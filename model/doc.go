// Package model contains the in-memory representation of agent-team
// definitions and supporting types used by the Gavel engine.
//
// A team is typically loaded from a YAML document into the structures
// defined in the `graph`, `state` and `types` sub-packages, or assembled
// programmatically via the builder methods on Team and Node.
package model
