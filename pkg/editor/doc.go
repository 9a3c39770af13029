// Package editor turns pointer and keyboard gestures into diagram mutations.
//
// A Controller owns the transient state of one editing session (selection,
// in-progress drag, in-progress connection) and applies every change to the
// underlying domain.Diagram immediately. There is no batching and no undo.
package editor
