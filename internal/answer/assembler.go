// Package answer assembles retrieved context and chat history into a
// generation prompt and returns grounded answers with their sources.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lightsspeed/Rag-1/internal/retrieval"
)

const (
	// DefaultMaxContextChars bounds the assembled context block. Roughly
	// 6k tokens at 4 characters per token, leaving headroom for history
	// and the answer inside the chat model's window.
	DefaultMaxContextChars = 24000

	// maxHistoryTurns caps how many prior turns are replayed to the
	// model; older turns are dropped to avoid context overflow.
	maxHistoryTurns = 6

	// instruction is the fixed grounding directive prepended to every
	// generation request.
	instruction = "You are a helpful assistant answering questions from provided document excerpts. " +
		"Answer using only the provided context. If the context is insufficient to answer, " +
		"say so instead of guessing. When the question refers to the previous conversation, " +
		"use it naturally."

	// noContextNotice replaces the context block when retrieval found
	// nothing, so the model declines or answers from general knowledge
	// explicitly rather than silently.
	noContextNotice = "No relevant context was found in the knowledge base for this question. " +
		"State that the knowledge base has no information on it, or answer from general " +
		"knowledge while saying the answer is not grounded in the uploaded documents."
)

// ErrGeneration indicates the generative model was unreachable or
// produced no output.
var ErrGeneration = errors.New("generation failed")

// Turn is one prior (question, answer) exchange, supplied by the caller;
// there is no server-side session store.
type Turn struct {
	Question string
	Answer   string
}

// Prompt is the fully assembled generation request.
type Prompt struct {
	Instruction string
	Context     string
	History     []Turn
	Question    string
}

// Result pairs the generated answer with the matches actually included
// as grounding, post-truncation, in rank order.
type Result struct {
	Answer  string
	Sources []retrieval.Match
}

// Retriever supplies ranked matches for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int) ([]retrieval.Match, error)
}

// Generator produces an answer for an assembled prompt. The production
// adapter is OpenAIGenerator; tests substitute an in-memory double.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Assembler merges retrieved context, prior chat turns, and the new
// question into one generation request.
type Assembler struct {
	retriever       Retriever
	generator       Generator
	maxContextChars int
}

// NewAssembler creates an Assembler. A non-positive maxContextChars
// falls back to DefaultMaxContextChars.
func NewAssembler(retriever Retriever, generator Generator, maxContextChars int) *Assembler {
	if maxContextChars <= 0 {
		maxContextChars = DefaultMaxContextChars
	}
	return &Assembler{
		retriever:       retriever,
		generator:       generator,
		maxContextChars: maxContextChars,
	}
}

// Answer retrieves context for the question, builds the prompt, and calls
// the generative model. On generation failure the retrieved sources are
// still attached to the result so the caller can see what context would
// have been used.
func (a *Assembler) Answer(ctx context.Context, question string, history []Turn, topK int) (*Result, error) {
	matches, err := a.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	included, contextBlock := a.buildContext(matches)

	prompt := Prompt{
		Instruction: instruction,
		Context:     contextBlock,
		History:     recentTurns(history),
		Question:    question,
	}
	if contextBlock == "" {
		prompt.Context = noContextNotice
	}

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return &Result{Sources: included}, fmt.Errorf("generation: %w", err)
	}

	return &Result{Answer: text, Sources: included}, nil
}

// buildContext concatenates match texts in rank order into one context
// block. If the block would exceed the budget, lowest-ranked matches are
// dropped whole; a chunk is never cut mid-text. Returns the matches that
// made it in alongside the block.
func (a *Assembler) buildContext(matches []retrieval.Match) ([]retrieval.Match, string) {
	var b strings.Builder
	included := make([]retrieval.Match, 0, len(matches))

	for _, m := range matches {
		entry := fmt.Sprintf("[%s, page %d]\n%s", m.Chunk.Filename, m.Chunk.Page, m.Chunk.Content)
		extra := len(entry)
		if b.Len() > 0 {
			extra += 2 // separator
		}
		if b.Len()+extra > a.maxContextChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(entry)
		included = append(included, m)
	}

	return included, b.String()
}

// recentTurns keeps the most recent maxHistoryTurns turns in
// chronological order.
func recentTurns(history []Turn) []Turn {
	if len(history) <= maxHistoryTurns {
		return history
	}
	return history[len(history)-maxHistoryTurns:]
}
