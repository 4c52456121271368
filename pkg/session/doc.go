/*
Package session implements session management and persistence orchestration.

It provides high-level abstractions for handling concurrent access to
conversation states across multiple replicas, integrating local in-process
locks with distributed locking and long-term storage adapters.
*/
package session
