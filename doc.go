/*
Package lattice is the core of a process-modeling console: BPMN-style
diagrams, their structural validation, lossless JSON export, best-effort
BPMN/YAML import, and the persisted collections around them.

# Concept

A diagram is an ordered list of typed nodes (StartEvent, EndEvent, Task,
Gateway, SubProcess) and directed edges between them. The editor package
turns pointer gestures into diagram mutations; the validation package
reports structural findings as data, never as errors. Everything the console
persists goes through a ports.KeyValueStore, one JSON array per collection.

# Usage

	ws, err := lattice.New(
		lattice.WithStore(store),
		lattice.WithNotifier(notifier),
	)
	if err != nil {
		log.Fatal(err)
	}

	d := ws.NewDiagram("Invoice Approval")
	ctl := ws.Edit(d)
	_ = ctl.BeginDrag(domain.KindStartEvent)
	start, _ := ctl.Drop(domain.Position{X: 100, Y: 100})
	...

	res := ws.Validate(ctx, d)      // summary published to the notifier
	data, _ := ws.Export(ctx, d, codec.FormatJSON)
	_, _ = ws.Save(ctx, catalog.Processes, d)

# Architecture

  - pkg/domain: diagram, node, edge and entity types; sentinel errors.
  - pkg/validation: the structural rules.
  - pkg/codec: JSON envelope, BPMN 2.0 XML and YAML.
  - pkg/editor: the interaction state machine.
  - pkg/layout: layered auto-layout for imported diagrams.
  - pkg/entity, pkg/catalog: typed collections over a key-value store.
  - pkg/adapters: memory, redis, HTTP and MCP; internal/adapters holds file and sqlite.
  - pkg/persistence/middleware: encryption, PII masking and metrics around any store.
*/
package lattice
