package omclient

import (
	"sort"
	"strings"
)

// defaultCachePolicy maps each resource type to its tier. Near-static
// administrative entities live long, service and container entities medium,
// frequently-edited data assets short. Search, lineage and usage results
// are too volatile to cache at all; so is anything not listed here.
var defaultCachePolicy = map[string]Tier{
	"classifications": TierLong,
	"teams":           TierLong,
	"roles":           TierLong,
	"policies":        TierLong,
	"tags":            TierLong,

	"users":             TierMedium,
	"glossaries":        TierMedium,
	"glossaryTerms":     TierMedium,
	"databaseServices":  TierMedium,
	"dashboardServices": TierMedium,
	"messagingServices": TierMedium,
	"pipelineServices":  TierMedium,
	"mlmodelServices":   TierMedium,
	"databases":         TierMedium,
	"schemas":           TierMedium,

	"tables":     TierShort,
	"dashboards": TierShort,
	"topics":     TierShort,
	"pipelines":  TierShort,
	"charts":     TierShort,
	"mlmodels":   TierShort,

	"search":  TierUncached,
	"lineage": TierUncached,
	"usage":   TierUncached,
}

// cacheKey builds a deterministic key from the endpoint and its query
// parameters. Parameters are serialized in sorted key order so callers
// supplying the same set in any order collide to the same entry.
func cacheKey(endpoint string, params Params) string {
	if len(params) == 0 {
		return endpoint
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}
