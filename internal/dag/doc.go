// Package dag implements the dependency graph of the module manifest. Nodes
// are module names; an edge from A to B records that B depends on A. The
// graph answers the questions the import closure needs: which modules a
// root reaches, whether the requires relation is acyclic, and in which
// order the reached modules can be laid out.
package dag
