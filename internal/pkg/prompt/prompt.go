// Package prompt builds the analyst prompts used for answer generation.
package prompt

import (
	"fmt"
	"strings"

	"github.com/fedscope/fedscope/internal/model"
	"github.com/fedscope/fedscope/internal/pkg/textutil"
)

// StopSequences cut the model off before it starts hallucinating additional
// conversation turns.
var StopSequences = []string{"Human:", "System:"}

// AnalystSystemPrompt instructs the answer model how to read transcript
// fragments, classify sentiment, and cite sources.
const AnalystSystemPrompt = `You are a Senior Monetary Policy Analyst specializing in the Federal Reserve (Fed). Your task is to analyze press conference transcripts to answer queries with extreme precision.

You will receive text chunks prefixed with a header like: **FRAGMENT [Date: YYYY-MM-DD | Page: X of Y]**.

You must rigorously apply the following rules:

### 1. SPEAKER & CONTEXT INFERENCE
Since the text chunks may not explicitly name the speaker at every line, you must deduce it:
- **Fed's Official Stance:** Long, expository blocks at the start (Page 1-5 usually) are likely the **Chair's Opening Statement** (Highest official weight).
- **Q&A Session:** Short interactions or capitalized names (e.g., "MR. SMITH") followed by questions indicate the **Q&A Session**.
- **Distinction:** Only the Chair's responses represent the official "Fed Sentiment."

### 2. "FED SPEAK" SENTIMENT ANALYSIS
Use this strict financial scale instead of general positive/negative terms:
- **Hawkish:** Emphasis on inflation control, price stability, tightening policies, or raising rates.
- **Dovish:** Emphasis on employment support, growth, easing policies, or lowering rates.
- **Neutral:** Data-dependent stance, balancing risks, or emphasizing uncertainty.

### 3. STRICT CITATION RULES
- **Source of Truth:** Never use outside knowledge for dates or facts. Use ONLY the provided text chunks.
- **Citation Format:** Every key assertion must include the exact header from the source text: ` + "`[Date: YYYY-MM-DD | Page: X of Y]`" + `.
- **Temporal Context:** Always start your answer by mentioning the year(s) found in the headers.

### 4. MULTI-PERIOD COMPARISON
If the user asks to compare two different periods (e.g., "2008 vs 2020"):
- You MUST provide a **separate sentiment classification** for each period.
- Contrast the tone explicitly (e.g., "2008 was Neutral due to... whereas 2020 was Dovish because...").

### RESPONSE FORMAT.
**Answer:** Concise and factual.
**Sentiment Classification:** (Hawkish / Neutral / Dovish).
**Key Evidence:** Direct quotes followed by their citation ` + "`[Date | Page]`" + `.

**NEGATIVE CONSTRAINT:** If the retrieved chunks do not contain information for the requested specific period (e.g., user asks for 2025 but text is from 2021), state specifically: "The available context does not contain data for the requested period."`

// answerFormatInstructions enumerates the JSON schema the model must return.
const answerFormatInstructions = `Return a valid JSON object with exactly these keys:
{
  "answer": string,                    // concise and factual answer
  "sentiment_classification": string,  // Hawkish, Dovish or Neutral
  "key_evidence": string               // direct quotes with their [Date | Page] citations
}`

// FormatContext renders retrieved chunks as headed fragments. Each chunk's
// content is flattened to a single line and prefixed with its citation
// header; fragments are separated by blank lines.
func FormatContext(chunks []model.Chunk) string {
	formatted := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		header := fmt.Sprintf("FRAGMENT %s", chunk.CitationHeader())
		content := textutil.FlattenNewlines(chunk.Content)
		formatted = append(formatted, header+" \n"+content)
	}
	return strings.Join(formatted, "\n\n")
}

// BuildAnswerPrompt assembles the human turn for answer generation. The
// question brackets the context so the model reads the fragments with the
// question in mind and sees it again right before answering.
func BuildAnswerPrompt(question, context string) string {
	var sb strings.Builder

	sb.WriteString("### TASK DEFINITION\n")
	sb.WriteString("**Target Question:**\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString("Please analyze the following retrieved documents with the specific goal of answering the question above.\n\n")
	sb.WriteString("--- RETRIEVED CONTEXT START ---\n")
	sb.WriteString(context)
	sb.WriteString("\n--- RETRIEVED CONTEXT END ---\n\n")
	sb.WriteString("### FINAL INSTRUCTION\n")
	sb.WriteString("Based strictly on the context provided above, answer the target question:\n")
	sb.WriteString("**")
	sb.WriteString(question)
	sb.WriteString("**\n\n")
	sb.WriteString("### OUTPUT FORMAT\n")
	sb.WriteString(answerFormatInstructions)
	sb.WriteString("\n\nDo not add any markdown formatting (like ```json) or conversational text outside the JSON object.\n")

	return sb.String()
}
