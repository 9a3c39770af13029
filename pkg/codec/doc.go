/*
Package codec converts process diagrams to and from their file formats.

The JSON envelope is the lossless format: ImportJSON(ExportJSON(d)) yields the
same nodes and edges (ids, kinds, positions, labels, metadata, endpoints).
Unknown node and edge fields found on import are preserved in metadata.

External formats (BPMN 2.0 XML and a minimal YAML description) are ingested
best-effort through ImportExternal. When a document cannot be mapped, the
importer falls back to a Start, Task, End skeleton and flags the result as a
placeholder; callers must not assume full fidelity from that path.
*/
package codec
