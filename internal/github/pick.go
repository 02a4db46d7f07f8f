package github

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/binup-dev/binup/internal/extract"
)

// PickAsset narrows a release's assets down to exactly one.
//
// With an explicit override pattern, exactly one asset name must match:
// the override exists to make selection deterministic, so zero or several
// matches signal misconfiguration. Without one, a heuristic scores asset
// names against platform facts, unsupported archive types are filtered out
// (unless an extract hook will interpret the artifact), and any remaining
// tie is broken by download count.
func PickAsset(rel *Release, sel Selection) (*Asset, error) {
	if sel.PickRegex != "" {
		return pickByRegex(rel, sel.PickRegex)
	}

	candidates, err := pickByConditions(rel.Assets, conditionGroups(rel, sel))
	if err != nil {
		return nil, err
	}

	if !sel.HasExtractHook {
		supported := candidates[:0:0]
		for _, a := range candidates {
			if extract.IsSupportedContentType(a.ContentType) {
				supported = append(supported, a)
			}
		}
		if len(supported) == 0 {
			return nil, fmt.Errorf("no asset with a supported content type %v among %d candidates",
				extract.SupportedContentTypes, len(candidates))
		}
		candidates = supported
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}

	// Popularity is a proxy, not a guarantee; make the choice visible.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DownloadCount > candidates[j].DownloadCount
	})
	if sel.Logger != nil {
		names := make([]string, len(candidates))
		for i, a := range candidates {
			names[i] = fmt.Sprintf("%s(%d)", a.Name, a.DownloadCount)
		}
		sel.Logger.Warn("multiple assets matched, using the most downloaded",
			"count", len(candidates), "assets", strings.Join(names, ","))
	}
	return candidates[0], nil
}

func pickByRegex(rel *Release, pattern string) (*Asset, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pick regex %q: %w", pattern, err)
	}

	var matches []*Asset
	for i := range rel.Assets {
		if re.MatchString(rel.Assets[i].Name) {
			matches = append(matches, &rel.Assets[i])
		}
	}
	if len(matches) != 1 {
		return nil, fmt.Errorf("pick regex %q matched %d assets, want exactly 1", pattern, len(matches))
	}
	return matches[0], nil
}

// conditionGroups builds the ordered condition groups the heuristic scans,
// most specific first: identifying tokens, OS, architecture aliases, libc
// flavor. Empty tokens are dropped so they cannot turn an alternation into
// a match-everything.
func conditionGroups(rel *Release, sel Selection) [][]string {
	groups := [][]string{
		{sel.BinName, rel.TagName, rel.Name},
		{sel.Platform.OS},
		sel.Platform.ArchAliases(),
		{sel.Platform.TargetEnv},
	}

	cleaned := make([][]string, 0, len(groups))
	for _, g := range groups {
		var words []string
		for _, w := range g {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, w)
			}
		}
		if len(words) > 0 {
			cleaned = append(cleaned, words)
		}
	}
	return cleaned
}

// pickByConditions scans contiguous windows of the condition groups,
// widest first and shrinking from the front, and returns the assets
// matched by the first non-empty window. A window of N groups is
// approximated by a regex requiring N sequential occurrences of the
// union alternation of the window's words, a deliberate relaxation that
// tolerates asset names missing one axis of specificity.
func pickByConditions(assets []Asset, groups [][]string) ([]*Asset, error) {
	for width := len(groups); width >= 1; width-- {
		for start := 0; start+width <= len(groups); start++ {
			re, err := windowRegex(groups[start : start+width])
			if err != nil {
				return nil, err
			}

			var matched []*Asset
			for i := range assets {
				if re.MatchString(assets[i].Name) {
					matched = append(matched, &assets[i])
				}
			}
			if len(matched) > 0 {
				return matched, nil
			}
		}
	}
	return nil, fmt.Errorf("no asset matched condition groups %v", groups)
}

// windowRegex compiles the N-sequential-occurrences approximation for a
// window of condition groups.
func windowRegex(window [][]string) (*regexp.Regexp, error) {
	var words []string
	for _, g := range window {
		for _, w := range g {
			words = append(words, regexp.QuoteMeta(w))
		}
	}

	unit := "(?:" + strings.Join(words, "|") + ").*"
	pattern := "(?i)" + strings.Repeat(unit, len(window))

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile condition regex %q: %w", pattern, err)
	}
	return re, nil
}
