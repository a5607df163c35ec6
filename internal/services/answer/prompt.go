package answer

import (
	"fmt"

	"github.com/docuchat/docuchat/internal/models"
)

// instructionBlock enforces the answer format regardless of persona:
// grounded facts only, exact dates and numbers, explicit "not found"
// instead of guessing.
const instructionBlock = `Answer directly, without any opening greeting line.

You must answer using ONLY the "Context" below.
If the context does not contain the answer, say so plainly instead of guessing.

IMPORTANT:
1. Put any code examples or snippets in proper markdown code blocks with language tags
2. Use markdown headings for better structure
3. Be VERY precise with dates, numbers, and specific facts from the context
4. Use memory context to provide more personalized and relevant answers`

// buildAnswerPrompt assembles the final generation prompt: persona voice
// first, then the instruction block, the question, and the context.
func buildAnswerPrompt(persona models.Persona, query, documentContext, memoryBlock string) string {
	return fmt.Sprintf(`%s

%s

Question:
%s

Context:
%s%s`, persona.Style, instructionBlock, query, documentContext, memoryBlock)
}
