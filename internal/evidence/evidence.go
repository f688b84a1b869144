// Package evidence gathers contextual evidence for one question from the
// knowledge store, the web search adapter, and the media extractor, and
// renders it into a single bounded prompt section.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"goutgle/internal/media"
	"goutgle/internal/websearch"
)

// Bundle is the merged per-request evidence. It is ephemeral: built for
// one request/response cycle and never stored.
type Bundle struct {
	LocalContext string
	WebContext   string
	MediaText    string
	LabelText    string // constrained label field detection, feeds clarification
}

// KeywordSearcher is the knowledge-store lookup.
type KeywordSearcher interface {
	Search(question string) []string
}

// WebSearcher is the snippet-retrieval provider.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// Extractor is the media text-extraction and label-detection capability.
type Extractor interface {
	ExtractText(ctx context.Context, f media.File) (string, error)
	DescribeLabel(ctx context.Context, f media.File) (string, error)
}

// Assembler merges collaborator outputs into one Bundle. It holds no
// per-request state.
type Assembler struct {
	store     KeywordSearcher
	web       WebSearcher
	extractor Extractor
	logger    *slog.Logger
}

func NewAssembler(store KeywordSearcher, web WebSearcher, extractor Extractor, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{store: store, web: web, extractor: extractor, logger: logger}
}

// Assemble builds the evidence bundle for question. Local context is
// always computed; web context only when useWeb; media text and label
// detection only when a file is attached. Collaborator failures never
// abort assembly: they come back as warnings and the bundle keeps whatever
// evidence was gathered.
func (a *Assembler) Assemble(ctx context.Context, question string, useWeb bool, file *media.File) (Bundle, []string) {
	var bundle Bundle
	var warnings []string

	bundle.LocalContext = strings.Join(a.store.Search(question), "\n")

	if useWeb {
		results, err := a.web.Search(ctx, question)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("recherche web indisponible : %v", err))
		}
		var sb strings.Builder
		for _, r := range results {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", r.Snippet, r.Link))
		}
		bundle.WebContext = strings.TrimSpace(sb.String())
	}

	if file != nil {
		text, err := a.extractor.ExtractText(ctx, *file)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("extraction impossible pour %s : %v", file.Name, err))
		} else {
			bundle.MediaText = text
		}

		if file.IsImage() {
			label, err := a.extractor.DescribeLabel(ctx, *file)
			if err != nil {
				// Label detection feeds the clarification gate; its failure
				// must stay visible rather than silently skipping the gate.
				warnings = append(warnings, fmt.Sprintf("analyse de l'étiquette impossible : %v", err))
			} else {
				bundle.LabelText = label
			}
		}
	}

	a.logger.Debug("evidence assembled",
		"local", bundle.LocalContext != "",
		"web", bundle.WebContext != "",
		"media", bundle.MediaText != "",
		"label", bundle.LabelText != "",
		"warnings", len(warnings))
	return bundle, warnings
}

// Render composes the typed evidence sections and the question into the
// text of a single user turn. Empty sections are omitted.
func (b Bundle) Render(question string) string {
	var sb strings.Builder
	section := func(title, body string) {
		if body == "" {
			return
		}
		sb.WriteString(title)
		sb.WriteString(" :\n")
		sb.WriteString(body)
		sb.WriteString("\n\n")
	}

	section("Contexte local", b.LocalContext)
	section("Contexte web", b.WebContext)
	section("Contenu du document", b.MediaText)
	section("Étiquette détectée", b.LabelText)

	sb.WriteString("Question : ")
	sb.WriteString(question)
	return sb.String()
}

// RenderFinal appends the collected clarification answers to the rendered
// prompt for the finalize completion.
func (b Bundle) RenderFinal(question, transcript string) string {
	base := b.Render(question)
	if transcript == "" {
		return base
	}
	return base + "\n\nPrécisions apportées :\n" + transcript
}
