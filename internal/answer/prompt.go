package answer

import "fmt"

// BuildPrompt wraps the document text and the user's question in the
// instruction sent to the model.
func BuildPrompt(query, text string) string {
	return fmt.Sprintf(`
The following is content from a PDF document:
%s

User's question about this document: %s

Please provide a clear and concise answer based only on the document content.
`, text, query)
}
