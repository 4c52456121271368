// Package flow builds executable conversation nodes from a parsed flow
// configuration and drives the transitions between them.
//
// The package mirrors the parse-time/run-time split of the domain model: the
// factories (HandlerFactory, NodeFactory) run once per conversation setup and
// produce an immutable node arena, while StateManager and TransitionManager
// operate on a single conversation's mutable state at each turn.
package flow
