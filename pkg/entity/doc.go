/*
Package entity implements the generic Entity Store.

A Collection persists every item of one kind as a single JSON array under one
store key. Writes replace the whole array (last write wins across sessions),
while a session.Manager serializes read-modify-write cycles within and, with a
distributed locker, across processes.

Items embed domain.Entity and are validated with go-playground/validator
struct tags before any write.
*/
package entity
