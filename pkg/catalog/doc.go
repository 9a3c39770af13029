// Package catalog names the console's persisted collections and moves
// diagrams in and out of them.
//
// Processes, templates and projects hold ProcessRecords (an entity header plus
// the diagram's nodes and edges). Reports, users, initiatives and
// collaborations hold plain entities; the diagram core only needs them to be
// listable and searchable.
package catalog
