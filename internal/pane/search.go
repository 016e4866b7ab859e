package pane

import (
	"regexp"
	"strings"
)

// searchLines runs a regex or plain-text search over a set of physical
// rows addressed by stable row index startY+i. A regex compile failure
// yields an empty result, never an error.
func searchLines(rows []Line, startY int64, pattern SearchPattern, limit int) []SearchResult {
	var re *regexp.Regexp
	var needle string
	caseFold := false

	switch {
	case pattern.Regex != "":
		compiled, err := regexp.Compile(pattern.Regex)
		if err != nil {
			return nil
		}
		re = compiled
	case pattern.CaseInsensitive != "":
		needle = strings.ToLower(pattern.CaseInsensitive)
		caseFold = true
	default:
		needle = pattern.CaseSensitive
	}

	matchIDs := make(map[string]int)
	nextMatchID := 0
	idFor := func(text string) int {
		if id, ok := matchIDs[text]; ok {
			return id
		}
		id := nextMatchID
		matchIDs[text] = id
		nextMatchID++
		return id
	}

	var out []SearchResult
	for i, line := range rows {
		if limit > 0 && len(out) >= limit {
			break
		}
		y := startY + int64(i)
		haystack := line.Text

		if re != nil {
			locs := re.FindAllStringIndex(haystack, -1)
			for _, loc := range locs {
				if limit > 0 && len(out) >= limit {
					break
				}
				text := haystack[loc[0]:loc[1]]
				out = append(out, SearchResult{
					StartY: y, EndY: y,
					StartX: runeIndex(haystack, loc[0]),
					EndX:   runeIndex(haystack, loc[1]),
					MatchID: idFor(text),
				})
			}
			continue
		}

		if needle == "" {
			continue
		}
		hay := haystack
		if caseFold {
			hay = strings.ToLower(hay)
		}
		searchFrom := 0
		for {
			if limit > 0 && len(out) >= limit {
				break
			}
			idx := strings.Index(hay[searchFrom:], needle)
			if idx < 0 {
				break
			}
			abs := searchFrom + idx
			text := haystack[abs : abs+len(needle)]
			out = append(out, SearchResult{
				StartY: y, EndY: y,
				StartX: runeIndex(haystack, abs),
				EndX:   runeIndex(haystack, abs+len(needle)),
				MatchID: idFor(text),
			})
			searchFrom = abs + len(needle)
		}
	}
	return out
}

// runeIndex converts a byte offset into haystack to a rune (column) index.
func runeIndex(s string, byteOffset int) int {
	return len([]rune(s[:byteOffset]))
}
