package chat

import (
	"fmt"
	"regexp"
	"strings"
)

// mentionPattern recognizes the three reference token shapes: <@id>, <@!id>
// and role mentions <@&id>.
var mentionPattern = regexp.MustCompile(`<@!?(\d+)>|<@&(\d+)>|<@(\d+)>`)

// namePattern matches the @username shapes a model emits.
var namePattern = regexp.MustCompile(`@(\w+)`)

// stripMentionToken extracts the numeric identifier from a mention token.
func stripMentionToken(token string) string {
	return strings.Trim(token, "<@!&>")
}

// MentionIDs returns the unique identifiers referenced by mention tokens in
// content, in order of first appearance.
func MentionIDs(content string) []string {
	var ids []string
	seen := make(map[string]bool)

	for _, token := range mentionPattern.FindAllString(content, -1) {
		id := stripMentionToken(token)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	return ids
}

// Directory maps user identifiers to display names for one generation call.
type Directory map[string]string

// Encode replaces mention tokens with @displayName so the model sees
// readable references. Unknown identifiers keep the original token
// verbatim.
func (d Directory) Encode(content string) string {
	return mentionPattern.ReplaceAllStringFunc(content, func(token string) string {
		id := stripMentionToken(token)
		name, ok := d[id]
		if !ok {
			return token
		}
		return "@" + name
	})
}

// DecodeMentions rewrites @username tokens in model output back into
// canonical <@id> references using the supplied reverse lookup. Tokens with
// no match are left untouched. The transform is best-effort and
// non-bijective: display-name collisions and partial-word matches are
// accepted.
func DecodeMentions(content string, resolve func(name string) (string, bool)) string {
	return namePattern.ReplaceAllStringFunc(content, func(token string) string {
		name := token[1:]
		id, ok := resolve(name)
		if !ok {
			return token
		}
		return fmt.Sprintf("<@%s>", id)
	})
}
