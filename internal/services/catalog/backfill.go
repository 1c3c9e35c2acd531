package catalog

import (
	"fmt"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
)

const backfillPrefix = "minawan-backfill"

// backfillSeed names a pre-migration asset set living outside the per-user
// folder convention. Seeds have no user id, so their entries carry no
// capability for moderation and are published pre-approved.
type backfillSeed struct {
	DisplayName string
	AssetName   string
}

// Assets migrated from the original hand-maintained gallery. Only minawan
// predates the upload flow; newer communities launched on it directly.
var backfillSeeds = map[community.Community][]backfillSeed{
	community.Minawan: {
		{DisplayName: "cerberVT", AssetName: "cerber"},
		{DisplayName: "WanderingSprit", AssetName: "wanderingsprit"},
		{DisplayName: "Maanwan", AssetName: "maanwan"},
		{DisplayName: "germaanwan", AssetName: "germaanwan"},
		{DisplayName: "minawan_of_ojou", AssetName: "ojou"},
	},
}

// appendBackfill adds the community's static entries, skipping any seed whose
// display name already has a live entry. Live data always wins.
func appendBackfill(comm community.Community, entries []Entry, publicURL func(string) string) []Entry {
	seeds, ok := backfillSeeds[comm]
	if !ok {
		return entries
	}

	live := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.DisplayName != "" {
			live[entry.DisplayName] = true
		}
	}

	for _, seed := range seeds {
		if live[seed.DisplayName] {
			continue
		}
		entries = append(entries, Entry{
			DisplayName: seed.DisplayName,
			Approved:    true,
			Backfill:    true,
			OriginalURL: publicURL(backfillKey(seed.AssetName, ".webp")),
			Avif256:     publicURL(backfillKey(seed.AssetName, "_256x256.avif")),
			Png256:      publicURL(backfillKey(seed.AssetName, "_256x256.png")),
			Avif512:     publicURL(backfillKey(seed.AssetName, "_512x512.avif")),
			Png512:      publicURL(backfillKey(seed.AssetName, "_512x512.png")),
			Avif64:      publicURL(backfillKey(seed.AssetName, "_64x64.avif")),
			Png64:       publicURL(backfillKey(seed.AssetName, "_64x64.png")),
		})
	}

	return entries
}

func backfillKey(assetName, suffix string) string {
	return fmt.Sprintf("%s/%s%s", backfillPrefix, assetName, suffix)
}
