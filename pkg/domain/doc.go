// Package domain contains the core types shared across convoflow:
// parsed sections, the flow graph, executable nodes, and the per-conversation
// runtime state. It deliberately has no dependencies outside the standard
// library so that adapters and hosts can import it freely.
package domain
