package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/convoflow/convoflow/pkg/domain"
)

// KnowledgeBaseFunc answers a free-form user question from an external
// knowledge source.
type KnowledgeBaseFunc func(ctx context.Context, query string, state *domain.ConversationState) (string, error)

// HandoverFunc escalates the conversation to a human agent.
type HandoverFunc func(ctx context.Context, reason string, state *domain.ConversationState) error

// EndCallFunc runs when the conversation is terminated on request.
type EndCallFunc func(ctx context.Context, reason string, state *domain.ConversationState) error

// GlobalFunctionManager injects functions that must be callable from every
// node regardless of flow position: knowledge-base lookup, human handover
// and call termination. Global handlers never advance the flow — they return
// a nil next node, which means "stay where you are".
type GlobalFunctionManager struct {
	knowledgeBase KnowledgeBaseFunc
	handover      HandoverFunc
	endCall       EndCallFunc
}

func NewGlobalFunctionManager(kb KnowledgeBaseFunc, handover HandoverFunc, endCall EndCallFunc) *GlobalFunctionManager {
	return &GlobalFunctionManager{knowledgeBase: kb, handover: handover, endCall: endCall}
}

// Schemas returns the schemas for every configured global function.
func (m *GlobalFunctionManager) Schemas() []domain.FunctionSchema {
	var schemas []domain.FunctionSchema
	if m.knowledgeBase != nil {
		schemas = append(schemas, m.knowledgeBaseSchema())
	}
	if m.handover != nil {
		schemas = append(schemas, m.handoverSchema())
	}
	if m.endCall != nil {
		schemas = append(schemas, m.endCallSchema())
	}
	return schemas
}

// InjectIntoNodes appends global functions to each node, deduplicated by
// name so repeated injection cannot stack duplicates.
func (m *GlobalFunctionManager) InjectIntoNodes(nodes []*domain.Node) {
	schemas := m.Schemas()
	for _, node := range nodes {
		for _, schema := range schemas {
			if node.HasFunction(schema.Name) {
				continue
			}
			node.Functions = append(node.Functions, schema)
		}
	}
}

func (m *GlobalFunctionManager) knowledgeBaseSchema() domain.FunctionSchema {
	return domain.FunctionSchema{
		Name:        "get_knowledge_base_info",
		Description: "Look up an answer to a user question that falls outside the current step",
		Properties: map[string]domain.Property{
			"query": {Type: domain.FieldString, Description: "The user's question"},
			"top_k": {Type: domain.FieldNumber, Description: "How many knowledge entries to consult"},
		},
		Required: []string{"query"},
		Handler: func(ctx context.Context, args map[string]any, state *domain.ConversationState) (*domain.Result, *domain.Node, error) {
			query := stringArg(args, "query")
			answer, err := m.knowledgeBase(ctx, query, state)
			if err != nil {
				return nil, nil, fmt.Errorf("knowledge base lookup: %w", err)
			}
			result := domain.NewResult("get_knowledge_base_info", map[string]any{
				"query":  query,
				"answer": answer,
			}, nil)
			return result, nil, nil
		},
	}
}

func (m *GlobalFunctionManager) handoverSchema() domain.FunctionSchema {
	return domain.FunctionSchema{
		Name:        "handover_call",
		Description: "Transfer the conversation to a human agent",
		Properties: map[string]domain.Property{
			"reason": {Type: domain.FieldString, Description: "Why the handover was requested"},
		},
		Handler: func(ctx context.Context, args map[string]any, state *domain.ConversationState) (*domain.Result, *domain.Node, error) {
			reason := stringArg(args, "reason")
			if err := m.handover(ctx, reason, state); err != nil {
				return nil, nil, fmt.Errorf("handover: %w", err)
			}
			sm := NewStateManager(state)
			sm.SetMetadata("handover_reason", reason)
			return domain.NewResult("handover_call", nil, nil), nil, nil
		},
	}
}

func (m *GlobalFunctionManager) endCallSchema() domain.FunctionSchema {
	return domain.FunctionSchema{
		Name:        "end_call",
		Description: "End the conversation politely when the user asks to stop",
		Properties: map[string]domain.Property{
			"reason": {Type: domain.FieldString, Description: "Why the conversation is ending"},
		},
		Handler: func(ctx context.Context, args map[string]any, state *domain.ConversationState) (*domain.Result, *domain.Node, error) {
			reason := stringArg(args, "reason")
			if err := m.endCall(ctx, reason, state); err != nil {
				return nil, nil, fmt.Errorf("end call: %w", err)
			}
			sm := NewStateManager(state)
			sm.SetMetadata("end_reason", reason)
			sm.MarkEnded()
			return domain.NewResult("end_call", nil, nil), nil, nil
		},
	}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
	return ""
}
