package answer

import (
	"context"
	"strings"
)

// Mock serves canned documents and answers keyed on query keywords.
// It stands in for the real knowledge base in tests and local runs.
type Mock struct{}

// NewMock returns a keyword-matched mock retriever/generator.
func NewMock() *Mock {
	return &Mock{}
}

var mockShelves = []struct {
	keywords []string
	docs     []Document
}{
	{
		keywords: []string{"aws", "cloud", "deployment"},
		docs: []Document{
			{Title: "AWS Best Practices", Content: "AWS best practices and guidelines for cloud deployment, including IAM roles, VPC layout and cost controls."},
			{Title: "Cloud Security", Content: "Cloud security considerations and recommendations for workloads running in shared infrastructure."},
		},
	},
	{
		keywords: []string{"confluence", "wiki", "documentation"},
		docs: []Document{
			{Title: "Confluence User Guide", Content: "Confluence user guide and administration tips covering spaces, permissions and templates."},
			{Title: "Wiki Content Management", Content: "Wiki content management and collaboration features for documentation teams."},
		},
	},
	{
		keywords: []string{"backup", "configuration", "settings"},
		docs: []Document{
			{Title: "Backup Configuration", Content: "How to configure scheduled backups, retention windows and restore procedures."},
		},
	},
}

// Search returns canned documents whose shelf keywords appear in the query.
// A query that matches nothing gets a single general-information document.
func (m *Mock) Search(_ context.Context, query string, maxResults int) ([]Document, error) {
	if maxResults <= 0 {
		maxResults = 3
	}
	lower := strings.ToLower(query)

	var docs []Document
	for _, shelf := range mockShelves {
		for _, kw := range shelf.keywords {
			if strings.Contains(lower, kw) {
				docs = append(docs, shelf.docs...)
				break
			}
		}
	}
	if len(docs) == 0 {
		docs = append(docs, Document{
			Title:   "General Information",
			Content: "General information and helpful resources from the knowledge base.",
		})
	}
	if len(docs) > maxResults {
		docs = docs[:maxResults]
	}
	return docs, nil
}

// Generate produces a templated answer that quotes the prompt's context block.
func (m *Mock) Generate(_ context.Context, prompt string) (string, error) {
	ctxBlock := extractContext(prompt)
	if ctxBlock == "" || ctxBlock == "No relevant documents found." {
		return "I could not find relevant documentation for your question. Please rephrase it or contact your administrator.", nil
	}

	var b strings.Builder
	b.WriteString("Based on the documentation:\n\n")
	b.WriteString(ctxBlock)
	b.WriteString("\n\nIf you need more detail, consult the linked pages in the knowledge base.")
	return b.String(), nil
}

// extractContext pulls the knowledge-base block out of a prepared prompt.
// The mock relies on the prompt layout produced by the gate package.
func extractContext(prompt string) string {
	const marker = "AVAILABLE KNOWLEDGE BASE:\n"
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(marker):]
	if j := strings.Index(rest, "\n\nUSER QUESTION:"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}
