package translate

import "fmt"

// DefaultTargetLanguage is used when the request does not name one.
const DefaultTargetLanguage = "English"

// SystemPrompt builds the instruction sent with every chunk. The model must
// return translated prose only, with paragraph breaks preserved, so the
// output can be cut back into blocks.
func SystemPrompt(targetLanguage string) string {
	if targetLanguage == "" {
		targetLanguage = DefaultTargetLanguage
	}
	return fmt.Sprintf(
		"You are a literary translator. Translate the user's text into %s. "+
			"Preserve the paragraph structure: keep blank lines between paragraphs exactly where they appear in the source. "+
			"Keep names, numbers and formatting as they are. "+
			"Respond with the translated text only, without explanations, notes or quotation marks around the result.",
		targetLanguage,
	)
}
