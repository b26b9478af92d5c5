package kb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// FallbackAnswer replaces an answer that streamed no text.
const FallbackAnswer = "Sorry, I wasn't able to find an answer to that. Please try again."

var (
	linkText   = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)
	linkTarget = strings.NewReplacer(` `, `%20`, `(`, `%28`, `)`, `%29`)
)

// Source is a resolved citation.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CitationResolver looks up a citation id within a project.
type CitationResolver interface {
	Lookup(ctx context.Context, projectID string, id CitationID) (Source, error)
}

// Assembler folds stream events into one final answer.
type Assembler struct {
	resolver  CitationResolver
	projectID string
	logger    *slog.Logger

	buf       strings.Builder
	citations []CitationID
}

func NewAssembler(resolver CitationResolver, projectID string, logger *slog.Logger) *Assembler {
	return &Assembler{resolver: resolver, projectID: projectID, logger: logger}
}

// Add consumes one event. Error events are shown inline as text.
func (a *Assembler) Add(ev Event) {
	switch ev.Status {
	case StatusProgress, StatusError:
		a.buf.WriteString(ev.Text())
	case StatusFinish:
		a.buf.WriteString(ev.Text())
		a.citations = append(a.citations, ev.Citations...)
	}
}

// Empty reports whether no text has been collected yet.
func (a *Assembler) Empty() bool {
	return a.buf.Len() == 0
}

// Result resolves the collected citations and returns the final text.
// It never returns an empty string.
func (a *Assembler) Result(ctx context.Context) string {
	if a.buf.Len() == 0 {
		return FallbackAnswer
	}

	var sb strings.Builder
	sb.WriteString(a.buf.String())

	sources := a.resolve(ctx)
	if len(sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for i, src := range sources {
			title := src.Title
			if title == "" {
				title = src.URL
			}
			fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, linkText.Replace(title), linkTarget.Replace(src.URL))
		}
	}
	return sb.String()
}

func (a *Assembler) resolve(ctx context.Context) []Source {
	if a.resolver == nil {
		return nil
	}
	var out []Source
	for _, id := range a.citations {
		src, err := a.resolver.Lookup(ctx, a.projectID, id)
		if err != nil {
			a.logger.Warn("citation lookup failed", "citation", string(id), "error", err)
			continue
		}
		if src.URL == "" {
			continue
		}
		out = append(out, src)
	}
	return out
}

// Assemble folds a complete event sequence into a final answer.
func Assemble(ctx context.Context, events []Event, resolver CitationResolver, projectID string, logger *slog.Logger) string {
	a := NewAssembler(resolver, projectID, logger)
	for _, ev := range events {
		a.Add(ev)
	}
	return a.Result(ctx)
}
