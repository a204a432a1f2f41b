// Package settings provides the hierarchical configuration store a bot exposes to its modules.
//
// A Tree is declared from a YAML schema (see Parse), where mapping order is preserved and
// scalar tags decide each Setting's Type. Values can be overlaid from a Persister such as
// SQLiteStore, and replaced atomically with Tree.Apply.
package settings
