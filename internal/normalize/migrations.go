package normalize

// Schema v1 stored a single reading stretch as flat startDate/endDate fields.
func foldReadingDates(raw Raw) Raw {
	out := clone(raw)
	start, hasStart := present(out, "startDate")
	end, hasEnd := present(out, "endDate")
	delete(out, "startDate")
	delete(out, "endDate")

	if _, ok := present(out, "readingPeriods"); ok || (!hasStart && !hasEnd) {
		return out
	}

	period := map[string]any{}
	if hasStart {
		period["start"] = start
	}
	if hasEnd {
		period["end"] = end
	}
	out["readingPeriods"] = []any{period}
	return out
}

// legacyNames maps field names used before schema v3 to their current names.
// Several legacy names may feed the same current name; the first present one wins.
var legacyNames = []struct {
	legacy, current string
}{
	{"pubDate", "publishedDate"},
	{"publicationDate", "publishedDate"},
	{"thumbnail", "cover"},
	{"coverImage", "cover"},
	{"coverUrl", "cover"},
	{"desc", "description"},
	{"pages", "pageCount"},
	{"countryCode", "country"},
	{"ownershipType", "ownership"},
	{"status", "readingStatus"},
	{"readStatus", "recordStatus"},
	{"purchasedFrom", "source"},
	{"purchasePlace", "source"},
	{"resold", "resale"},
	{"firstLine", "firstSentence"},
	{"lastLine", "lastSentence"},
	{"bgmTitle", "musicTitle"},
	{"bgmArtist", "musicArtist"},
	{"bookColor", "spineColor"},
	{"textColor", "fontColor"},
	{"memo", "review"},
}

// renameLegacyFields moves values stored under legacy names to their current names.
// A value already stored under the current name is kept.
func renameLegacyFields(raw Raw) Raw {
	out := clone(raw)
	for _, n := range legacyNames {
		v, ok := present(out, n.legacy)
		delete(out, n.legacy)
		if !ok {
			continue
		}
		if _, taken := present(out, n.current); !taken {
			out[n.current] = v
		}
	}
	return out
}

// Tokens retired from the stored vocabulary
const (
	deprecatedStopped = "stopped"
	legacyReadEN      = "read"
	legacyReadKO      = "읽음"
)

func remapDeprecatedValues(raw Raw) Raw {
	out := clone(raw)
	if s, ok := out["recordStatus"].(string); ok && s == deprecatedStopped {
		out["recordStatus"] = "paused"
	}
	if s, ok := out["readingStatus"].(string); ok && (s == legacyReadEN || s == legacyReadKO) {
		out["readingStatus"] = "finished"
	}
	return out
}

// present reports a key that exists with a non-nil value
func present(raw Raw, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
