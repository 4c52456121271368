/*
Package observability provides monitoring for running conversation flows.

It exposes Prometheus metrics for flow parsing, handler execution, re-prompts
and objections, wired into the engine through domain.LifecycleHooks.
*/
package observability
