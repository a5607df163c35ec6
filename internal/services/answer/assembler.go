package answer

import (
	"fmt"
	"strings"

	"github.com/docuchat/docuchat/internal/common"
	"github.com/docuchat/docuchat/internal/models"
)

// buildDocumentContext renders reranked chunks as the "Context" block of
// the generation prompt. Each chunk gets a stable citation label so the
// model can reference its sources.
func buildDocumentContext(chunks []models.ScoredChunk) string {
	sections := make([]string, len(chunks))
	for i, sc := range chunks {
		label := sc.Source()
		if sc.Metadata.PageNumber > 0 {
			label = fmt.Sprintf("%s, p.%d", label, sc.Metadata.PageNumber)
		}
		if sc.Relevance > 0 {
			label = fmt.Sprintf("%s (relevance: %.3f)", label, sc.Relevance)
		}
		sections[i] = fmt.Sprintf("# Source %d (%s)\n%s", i+1, label, sc.Text)
	}
	return strings.Join(sections, "\n\n---\n\n")
}

// buildMemoryBlock renders the three memory categories under the global
// character budget, split proportionally between them. Items accumulate
// greedily in the order the fetches returned them (newest or most
// relevant first); a category stops at the first item that would breach
// its sub-budget, and that item is skipped whole. The emitted block
// therefore never exceeds the configured budget.
func buildMemoryBlock(mem *models.MemoryContext, config *common.MemoryConfig) string {
	if mem == nil || mem.TotalItems() == 0 {
		return ""
	}

	budget := config.ContextBudget
	if budget <= 0 {
		budget = 4000
	}

	const banner = "\n\n--- Memory Context ---\n"
	budget -= len(banner)
	if budget <= 0 {
		return ""
	}

	var b strings.Builder

	writeCategory(&b, "## Recent Conversation:", "### Context", mem.Conversation,
		budget*config.ConversationShare/100)
	writeCategory(&b, "## Recent Documents:", "### Recent Doc", mem.RecentDocuments,
		budget*config.RecentDocumentsShare/100)
	writeCategory(&b, "## Relevant Memories:", "### Memory", mem.RelevantMemories,
		budget*config.RelevantMemoriesShare/100)

	if b.Len() == 0 {
		return ""
	}
	return banner + b.String()
}

// writeCategory appends one memory category under its sub-budget. The
// header and separators count against the sub-budget like everything
// else; the first item that would breach it ends the category, skipped
// whole rather than truncated.
func writeCategory(b *strings.Builder, header, itemPrefix string, records []*models.MemoryRecord, subBudget int) {
	if len(records) == 0 || subBudget <= 0 {
		return
	}

	used := 0
	wroteHeader := false
	for i, rec := range records {
		item := fmt.Sprintf("%s %d\n%s", itemPrefix, i+1, rec.Content)
		cost := len(item) + 2
		if !wroteHeader {
			cost += len(header) + 2
		}
		if used+cost > subBudget {
			break
		}
		if !wroteHeader {
			b.WriteString("\n" + header + "\n")
			wroteHeader = true
		} else {
			b.WriteString("\n\n")
		}
		b.WriteString(item)
		used += cost
	}
}
