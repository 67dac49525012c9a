package ollama

import (
	"fmt"
	"strings"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

// buildAnswerPrompt frames the ranked chunks as numbered sources. The model
// is told to cite by article identifier so generated answers stay traceable
// to the underlying regulation text.
func buildAnswerPrompt(question string, results []domain.RankedResult) string {
	var contextBuilder strings.Builder
	for idx, result := range results {
		chunk := result.Chunk
		ref := fmt.Sprintf("%s 제%d조", chunk.DocumentCode, chunk.ArticleNumber)
		if chunk.ClauseNumber != 0 {
			ref += fmt.Sprintf(" %d항", chunk.ClauseNumber)
		}
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] %s (version %s, uri=%s)\n%s\n\n",
			idx+1,
			ref,
			chunk.VersionDate,
			chunk.URI,
			chunk.Text,
		))
	}

	return fmt.Sprintf(`You are an assistant for university academic regulations.
Answer the question only from the numbered sources below.
Cite every claim with the source reference, e.g. (학칙 제15조 2항).
If the sources do not contain the answer, say so directly.
Answer in the language of the question.

Question:
%s

Sources:
%s`, question, contextBuilder.String())
}
