// Package reconcile compares what a page's structure contains with what its
// rendered pixels show.
package reconcile

import (
	"strings"

	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// MinTextLength is the shortest structural text considered meaningful.
// Structural text at or below this length is ignored (separators, bullets,
// icon glyphs).
const MinTextLength = 2

// Hidden returns the structural strings that have no visual counterpart.
//
// Both sides are trimmed, lowercased and deduplicated. A structural string is
// visible when some visual string contains it or is contained by it, which
// tolerates OCR truncation and expansion. Hidden items keep the order in which
// they were first encountered and are returned in normalized form.
func Hidden(structural, visual []string) []string {
	visualSet := normalizeAll(visual)

	hidden := []string{}
	seen := make(map[string]bool, len(structural))

	for _, raw := range structural {
		s := normalize(raw)
		if len(s) <= MinTextLength || seen[s] {
			continue
		}
		seen[s] = true

		if !isVisible(s, visualSet) {
			hidden = append(hidden, s)
		}
	}

	return hidden
}

// Preview selects the structural text worth sending to the vision
// collaborator: trimmed, longer than MinTextLength, in document order,
// capped at limit items.
func Preview(nodes []types.StructuralNode, limit int) []string {
	preview := []string{}
	for _, node := range nodes {
		if len(preview) >= limit {
			break
		}
		text := strings.TrimSpace(node.Text)
		if len(text) > MinTextLength {
			preview = append(preview, text)
		}
	}
	return preview
}

// InteractiveElements passes through interactive nodes that carry an element handle
func InteractiveElements(nodes []types.StructuralNode) []types.InteractiveElement {
	elements := []types.InteractiveElement{}
	for _, node := range nodes {
		if !node.IsInteractive || node.ElementID == nil {
			continue
		}
		elements = append(elements, types.InteractiveElement{
			ElementID: *node.ElementID,
			Tag:       node.Tag,
			Text:      node.Text,
		})
	}
	return elements
}

func isVisible(s string, visual []string) bool {
	for _, v := range visual {
		if strings.Contains(v, s) || strings.Contains(s, v) {
			return true
		}
	}
	return false
}

// normalizeAll normalizes and deduplicates the visual side. Empty strings are
// dropped since every string contains "".
func normalizeAll(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, raw := range values {
		v := normalize(raw)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
