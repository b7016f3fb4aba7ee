package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/taleforge/taleforge/internal/logger"
)

// Generator turns player actions into narrative segments and proposes
// keyword dictionary updates, using a completion Client.
type Generator struct {
	client Client
}

// NewGenerator creates a Generator backed by client.
func NewGenerator(client Client) *Generator {
	return &Generator{client: client}
}

// ContinueStory asks the backend for the next narrative segment. progress is
// the trailing window of the story so far, overallContext the campaign's
// standing tone and style notes, and keywords the filtered dictionary subset
// relevant to this action.
func (g *Generator) ContinueStory(ctx context.Context, progress, overallContext, player, playerInput string, keywords map[string]string, model string) (string, error) {
	var b strings.Builder
	b.WriteString(overallContext)
	b.WriteString(" In the latest part of the story, ")
	b.WriteString(progress)
	b.WriteString(" The main character, ")
	b.WriteString(player)
	b.WriteString(", now decides to: ")
	b.WriteString(playerInput)
	b.WriteString(". This is a game setting; focus on detailed, cinematic descriptions. ")
	b.WriteString("Keep the response concise, aiming for 1 or 2 paragraphs only.")
	b.WriteString(" Relevant notes: ")
	b.WriteString(formatKeywords(keywords))

	segment, err := g.client.Complete(ctx, []Message{
		{Role: "user", Content: b.String()},
	}, model)
	if err != nil {
		return "", fmt.Errorf("story continuation failed: %w", err)
	}
	return segment, nil
}

// ExtractKeywords asks the backend to propose additions and updates to the
// keyword dictionary given a new story segment. current is the spotted
// subset of the dictionary; when it is empty a placeholder entry is sent so
// the model still sees the expected shape. A response that cannot be parsed
// as a string-to-string mapping is returned as an error; callers treat that
// as non-fatal.
func (g *Generator) ExtractKeywords(ctx context.Context, current map[string]string, text, model string) (map[string]string, error) {
	if len(current) == 0 {
		current = map[string]string{
			"placeholder": "The placeholder appears as keyword when no existing keyword detected in the given text.",
		}
	}

	prompt := fmt.Sprintf(`You are a keyword updater, only responsible for the keyword-updating step in a more complex text-game system. Below is the current keyword dictionary's content:

%s

---

Text:
%s

---

Your response should be strictly formatted as a dictionary in valid JSON format, nothing more, nothing else. This format is necessary because your response will be parsed directly by the program. Only include those keywords that you want to *add* as new keywords or existing keywords that you want to *update its explanation*. Keep in mind: keywords are used only for important note-taking and information storage. For example, the explanation of the keyword "letter from father" should contain the direct content of the letter. The keywords chosen should be those that are *specific to the story* - not general keywords!

Now, give the updated keyword dictionary based on the given text:`,
		formatKeywordJSON(current), text)

	response, err := g.client.Complete(ctx, []Message{
		{Role: "system", Content: prompt},
	}, model)
	if err != nil {
		return nil, fmt.Errorf("keyword extraction failed: %w", err)
	}

	updated, err := ParseKeywordMap(response)
	if err != nil {
		logger.Warn("Keyword extraction returned unparseable response: %v", err)
		return nil, err
	}
	return updated, nil
}

// formatKeywords renders keywords as "key: description" pairs in sorted key
// order so prompts are deterministic.
func formatKeywords(keywords map[string]string) string {
	keys := make([]string, 0, len(keywords))
	for k := range keywords {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+": "+keywords[k])
	}
	return strings.Join(pairs, ", ")
}

// formatKeywordJSON renders keywords as a JSON-style object in sorted key
// order.
func formatKeywordJSON(keywords map[string]string) string {
	keys := make([]string, 0, len(keywords))
	for k := range keywords {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%q: %q", k, keywords[k]))
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}
