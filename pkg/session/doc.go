/*
Package session orchestrates concurrent access to store keys.

A Manager wraps a ports.KeyValueStore and serializes read-modify-write cycles
per key, combining an in-process lock with an optional distributed lock so that
several replicas can share one backend.
*/
package session
