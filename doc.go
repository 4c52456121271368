/*
Package convoflow turns section-based conversational prompts into executable
flow graphs for voice and chat agents.

A prompt is a flat document of named sections — greetings, questions,
pitches, conditions, objections — written by non-programmers. The parser
classifies each section, derives the data fields it collects, and links
sections into a deterministic graph: sequential steps, conditional branches
with merge points, and objections reachable from anywhere. Each node carries
function schemas whose handlers validate collected fields, cache branch
decisions, and compute the next node.

The engine is stateless: all conversation progress lives in
domain.ConversationState, persisted through pluggable stores (memory, Redis)
and coordinated by the session manager. This Hexagonal Architecture lets the
same flow serve a CLI, an HTTP API, or an MCP server.

# Usage

	prompt := `
	[Greeting]
	Hi! This is Priya from Meena Naturals.

	[Always ask name]
	May I know your name?
	`

	f, err := convoflow.CreateSectionBasedFlow(prompt)
	if err != nil {
		log.Fatal(err)
	}

	state := domain.NewConversationState()
	node, _ := f.EntryNode()

	// The agent calls the node's function once the user answers.
	result, next, err := f.Call(ctx, state, node.Primary().Name,
		map[string]any{"name": "Asha"})

Nodes expose their instructions and verbatim task content for the hosting
agent; transitions are computed entirely by the handlers, so the same inputs
always walk the same path.
*/
package convoflow
