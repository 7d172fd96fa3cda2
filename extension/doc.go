// Package extension provides run-time registries that let Gavel work with
// user-defined capability services and Go types (for example custom tool
// inputs or outputs).
//
// The registries are normally modified through the public APIs under the
// root gavel package, therefore most applications do not need to import
// this package directly.
package extension
