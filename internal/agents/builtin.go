package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/convoroute-backend/internal/clients/openai"
	"github.com/yungbote/convoroute-backend/internal/convo"
	"github.com/yungbote/convoroute-backend/internal/tenant"
)

// RegisterBuiltins wires the agents every deployment carries. Business
// domains add their own handlers through the same Register call.
func RegisterBuiltins(r *Registry) error {
	if err := r.Register("fallback", NewFallbackAgent); err != nil {
		return err
	}
	if err := r.Register("smalltalk", NewSmalltalkAgent); err != nil {
		return err
	}
	if err := r.Register("knowledge", NewKnowledgeAgent); err != nil {
		return err
	}
	return nil
}

// fallbackAgent guarantees the system always responds. No external calls.
type fallbackAgent struct{}

func NewFallbackAgent(_ Deps) Handler { return fallbackAgent{} }

func (fallbackAgent) Key() string { return "fallback" }

func (fallbackAgent) Handle(_ context.Context, _ *tenant.Context, _ *convo.ConversationState, _ string) (*Result, error) {
	done := convo.StatusCompleted
	return &Result{
		ResponseText: "I'm not sure I can help with that directly, but I've noted your message. Could you rephrase, or tell me a bit more about what you need?",
		Patch:        StatePatch{Status: &done},
	}, nil
}

// smalltalkAgent handles greetings and chit-chat on the capable tier.
type smalltalkAgent struct {
	llm openai.Client
}

func NewSmalltalkAgent(deps Deps) Handler { return &smalltalkAgent{llm: deps.LLM} }

func (a *smalltalkAgent) Key() string { return "smalltalk" }

const smalltalkSystem = "You are a friendly, concise assistant replying inside a business messaging channel. Keep answers short and warm. Reply in the user's language."

func (a *smalltalkAgent) Handle(ctx context.Context, _ *tenant.Context, st *convo.ConversationState, message string) (*Result, error) {
	if a.llm == nil {
		return nil, fmt.Errorf("smalltalk agent requires an LLM client")
	}
	text, err := a.llm.GenerateText(ctx, openai.TierCapable, smalltalkSystem, renderTranscript(st, message))
	if err != nil {
		return nil, fmt.Errorf("smalltalk generation: %w", err)
	}
	done := convo.StatusCompleted
	return &Result{ResponseText: text, Patch: StatePatch{Status: &done}}, nil
}

// knowledgeAgent answers from the tenant's indexed documents: embed the
// question, search the tenant namespace, ground the answer in the hits.
type knowledgeAgent struct {
	deps Deps
}

func NewKnowledgeAgent(deps Deps) Handler { return &knowledgeAgent{deps: deps} }

func (a *knowledgeAgent) Key() string { return "knowledge" }

const knowledgeSystem = "You answer user questions using only the provided context documents. If the context does not contain the answer, say so briefly. Reply in the user's language."

func (a *knowledgeAgent) Handle(ctx context.Context, tctx *tenant.Context, st *convo.ConversationState, message string) (*Result, error) {
	if a.deps.LLM == nil || a.deps.Vector == nil {
		return nil, fmt.Errorf("knowledge agent requires LLM and vector store")
	}

	embs, err := a.deps.LLM.Embed(ctx, []string{message})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("embed query returned nothing")
	}

	tenantID := tenant.SystemTenantID
	if tctx != nil {
		tenantID = tctx.TenantID
	}
	docs, err := a.deps.Vector.Search(ctx, tenantID, embs[0], 5, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	var b strings.Builder
	b.WriteString("Context documents:\n")
	for i, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		fmt.Fprintf(&b, "[%d] %s\n", i+1, d.Text)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(message)

	text, err := a.deps.LLM.GenerateText(ctx, openai.TierCapable, knowledgeSystem, b.String())
	if err != nil {
		return nil, fmt.Errorf("knowledge generation: %w", err)
	}
	done := convo.StatusCompleted
	return &Result{
		ResponseText: text,
		Patch: StatePatch{
			Status: &done,
			Data:   map[string]any{"knowledge_hits": len(docs)},
		},
	}, nil
}

// renderTranscript gives the LLM a short window of turn history plus the
// current message.
func renderTranscript(st *convo.ConversationState, message string) string {
	var b strings.Builder
	if st != nil {
		msgs := st.Messages
		// The executor has already appended the incoming message.
		if n := len(msgs); n > 0 && msgs[n-1].Role == "user" && msgs[n-1].Content == message {
			msgs = msgs[:n-1]
		}
		if len(msgs) > 6 {
			msgs = msgs[len(msgs)-6:]
		}
		for _, m := range msgs {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	if b.Len() == 0 {
		return message
	}
	b.WriteString("user: ")
	b.WriteString(message)
	return b.String()
}
