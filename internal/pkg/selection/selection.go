// Package selection resolves a size request against an asset's variant
// ladder. It is purely functional: identical inputs always yield the same
// URL, which makes resolved URLs safe to cache and to denormalize into the
// affinity map.
package selection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ShiinaKin/random-img/app/models"
	"github.com/ShiinaKin/random-img/internal/pkg/imageprocessor"
)

// Condition carries the optional query parameters of a resolution request.
type Condition struct {
	UID     *int64
	Quality *int
	Width   *int
}

// CanonicalQuery serializes the non-nil condition fields with sorted keys,
// so equivalent requests share one cache entry.
func (c Condition) CanonicalQuery() string {
	params := map[string]string{}
	if c.Quality != nil {
		params["quality"] = fmt.Sprintf("%d", *c.Quality)
	}
	if c.Width != nil {
		params["th"] = fmt.Sprintf("%d", *c.Width)
	}
	if c.UID != nil {
		params["uid"] = fmt.Sprintf("%d", *c.UID)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

type candidate struct {
	width int
	path  string
}

// Resolve picks exactly one variant URL for the image.
//
// Without a width hint the fixed default rung is returned bare. With a hint
// the candidate minimizing |hint-width| wins; candidates are considered in
// declaration order (ladder ascending, original last) and the first minimum
// wins, so ties break the same way on every call. An exact width match
// drops the condition parameters and carries only the asset id, letting
// exact hits share bare cached URLs.
func Resolve(img *models.Image, cond Condition) string {
	base := img.Authority + "/"

	if cond.Width == nil {
		return base + img.W1280Path
	}
	hint := *cond.Width

	ladder := img.VariantPaths()
	candidates := make([]candidate, 0, len(ladder)+1)
	for i, width := range imageprocessor.LadderWidths {
		candidates = append(candidates, candidate{width: width, path: ladder[i]})
	}
	candidates = append(candidates, candidate{width: img.OriginalWidth, path: img.OriginalPath})

	best := candidates[0]
	bestDiff := absDiff(hint, best.width)
	for _, c := range candidates[1:] {
		if d := absDiff(hint, c.width); d < bestDiff {
			best = c
			bestDiff = d
		}
	}

	if best.width == hint {
		return fmt.Sprintf("%s%s?id=%d", base, best.path, img.ID)
	}
	return base + best.path + "?" + cond.CanonicalQuery()
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
