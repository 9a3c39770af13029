/*
Package domain contains the core process-diagram model of Lattice.

It defines the fundamental entities of a process diagram and the persisted
entity envelope. This package is kept pure and free of I/O or persistence,
following Hexagonal Architecture principles: adapters live under pkg/adapters
and talk to the core through the interfaces in pkg/ports.

# Key Entities

  - Diagram: one process model, an ordered set of Nodes and directed Edges.
  - Node: a typed diagram element (StartEvent, EndEvent, Task, Gateway, SubProcess).
  - Edge: a sequence flow between two nodes, optionally bound to connection handles.
  - Entity: the timestamped, owned record shape shared by every persisted collection.

A Diagram is single-writer: it is mutated from one editing session at a time
and is not safe for concurrent use.
*/
package domain
