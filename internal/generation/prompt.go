package generation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxNameRunes matches Shopify's product title limit.
	MaxNameRunes = 255
	// MaxDescriptionRunes is the description budget embedded in the prompt.
	MaxDescriptionRunes = 300

	defaultDescription = "A high-quality product"
)

const promptTemplate = `Generate a realistic Indian customer testimonial for this product.

Product Name: %s
Product Description: %s

STRICT RULES:
- Write in Hinglish (mix of Hindi and English using Roman script)
- Keep it 2-3 sentences maximum
- Sound natural like a real Indian customer wrote it
- Be enthusiastic and positive
- Mention quality, feeling, or experience
- Use common Indian expressions like "yaar", "bhai", "ekdum", "bahut"
- DO NOT use emojis or hashtags
- DO NOT use markdown emphasis such as asterisks or underscores
- DO NOT use quotation marks around the text
- DO NOT start with "Review:", "Testimonial:" or any other label

GOOD EXAMPLES:
- Bahut accha product hai yaar! Quality ekdum first class. Delivery bhi time pe aayi.
- Mujhe toh bahut pasand aaya. Value for money hai definitely. Highly recommend karunga sabko!
- Kya baat hai bhai! Product dekh ke dil khush ho gaya. Packaging bhi solid thi.

Now generate ONE testimonial (just the text, nothing else):`

// MaxPromptLength bounds the byte length of any BuildPrompt result.
var MaxPromptLength = len(promptTemplate) + (MaxNameRunes+MaxDescriptionRunes)*utf8.UTFMax

// BuildPrompt renders the instruction sent to every backend.
func BuildPrompt(req Request) string {
	description := truncateRunes(req.SubjectDescription, MaxDescriptionRunes)
	if strings.TrimSpace(description) == "" {
		description = defaultDescription
	}
	return fmt.Sprintf(promptTemplate, truncateRunes(req.SubjectName, MaxNameRunes), description)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
