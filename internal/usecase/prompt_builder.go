package usecase

import (
	"fmt"
	"strings"

	"claims-orchestrator/internal/domain"
)

// PromptInput contains the pieces that feed into the prompt builder.
type PromptInput struct {
	Query         string
	PromptVersion string
	Candidates    []domain.Candidate
	// LowConfidence is set when the corrective controller surfaced the set
	// with a low verdict; the prompt must tell the model to hedge.
	LowConfidence bool
}

// PromptBuilder renders the user prompt sent to the generation model.
type PromptBuilder interface {
	Build(input PromptInput) (string, error)
}

// XMLPromptBuilder creates structured prompts that separate retrieved
// context, the query, and confidence guidance into tagged sections.
type XMLPromptBuilder struct {
	additionalInstructions []string
}

// NewXMLPromptBuilder creates a prompt builder with optional extra instructions appended.
func NewXMLPromptBuilder(additionalInstructions ...string) PromptBuilder {
	return &XMLPromptBuilder{
		additionalInstructions: additionalInstructions,
	}
}

// Build renders the prompt for one query-answer cycle.
func (b *XMLPromptBuilder) Build(input PromptInput) (string, error) {
	if input.PromptVersion == "" {
		return "", fmt.Errorf("prompt version is required")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<context version=%q>\n", escape(input.PromptVersion)))
	for _, c := range input.Candidates {
		switch c.Source {
		case domain.SourcePolicies:
			b.writePolicyExcerpt(&sb, c)
		default:
			b.writeClaim(&sb, c)
		}
	}
	sb.WriteString("</context>\n\n")

	sb.WriteString("<instructions>\n")
	instructions := []string{
		"Answer the <query> using ONLY the claims and policy excerpts in <context>.",
		"When citing a claim, refer to it by its claim_id.",
		"State amounts and dates exactly as they appear in the context.",
		"If the context does not contain the answer, say so plainly instead of guessing.",
	}
	if input.LowConfidence {
		instructions = append(instructions,
			"The retrieved context may only be loosely related to the query. "+
				"Say explicitly that the available records are of limited relevance before answering.")
	}
	for _, inst := range append(instructions, b.additionalInstructions...) {
		sb.WriteString("  <line>")
		sb.WriteString(escape(inst))
		sb.WriteString("</line>\n")
	}
	sb.WriteString("</instructions>\n\n")

	sb.WriteString("<query>\n")
	sb.WriteString(escape(input.Query))
	sb.WriteString("\n</query>\n")

	return sb.String(), nil
}

func (b *XMLPromptBuilder) writeClaim(sb *strings.Builder, c domain.Candidate) {
	sb.WriteString("  <claim>\n")
	sb.WriteString("    <claim_id>")
	sb.WriteString(escape(c.ID))
	sb.WriteString("</claim_id>\n")
	for _, field := range []string{"status", "disease", "procedure", "denial_reason", "amount", "year"} {
		value := c.Metadata[field]
		if value == "" {
			continue
		}
		sb.WriteString("    <")
		sb.WriteString(field)
		sb.WriteString(">")
		sb.WriteString(escape(value))
		sb.WriteString("</")
		sb.WriteString(field)
		sb.WriteString(">\n")
	}
	if !c.ClaimDate.IsZero() {
		sb.WriteString("    <claim_date>")
		sb.WriteString(c.ClaimDate.Format("2006-01-02"))
		sb.WriteString("</claim_date>\n")
	}
	sb.WriteString("    <score>")
	sb.WriteString(fmt.Sprintf("%.6f", c.Composite))
	sb.WriteString("</score>\n")
	sb.WriteString("    <summary>")
	sb.WriteString(escape(c.Content))
	sb.WriteString("</summary>\n")
	sb.WriteString("  </claim>\n")
}

func (b *XMLPromptBuilder) writePolicyExcerpt(sb *strings.Builder, c domain.Candidate) {
	sb.WriteString("  <policy_excerpt>\n")
	sb.WriteString("    <chunk_id>")
	sb.WriteString(escape(c.ID))
	sb.WriteString("</chunk_id>\n")
	if title := c.Metadata["title"]; title != "" {
		sb.WriteString("    <title>")
		sb.WriteString(escape(title))
		sb.WriteString("</title>\n")
	}
	if section := c.Metadata["section"]; section != "" {
		sb.WriteString("    <section>")
		sb.WriteString(escape(section))
		sb.WriteString("</section>\n")
	}
	sb.WriteString("    <score>")
	sb.WriteString(fmt.Sprintf("%.6f", c.Composite))
	sb.WriteString("</score>\n")
	sb.WriteString("    <text>")
	sb.WriteString(escape(c.Content))
	sb.WriteString("</text>\n")
	sb.WriteString("  </policy_excerpt>\n")
}

func escape(value string) string {
	s := strings.TrimSpace(value)
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(s)
}
