package normalize

import (
	"math"
	"strconv"
	"strings"

	"bookshelf/internal/models"
)

func decode(raw Raw) models.Item {
	item := models.Item{
		ID:            str(raw, "id"),
		Title:         str(raw, "title"),
		Author:        str(raw, "author"),
		Translator:    str(raw, "translator"),
		Publisher:     str(raw, "publisher"),
		PublishedDate: str(raw, "publishedDate"),
		Cover:         str(raw, "cover"),
		Description:   str(raw, "description"),
		ISBN:          str(raw, "isbn"),
		Category:      str(raw, "category"),
		Series:        str(raw, "series"),
		PageCount:     integer(raw, "pageCount"),
		Format:        str(raw, "format"),
		Price:         integer(raw, "price"),
		Country:       models.NormalizeCountry(str(raw, "country")),
		Source:        str(raw, "source"),
		Resale:        boolean(raw, "resale"),
		Rating:        number(raw, "rating"),
		FirstSentence: str(raw, "firstSentence"),
		LastSentence:  str(raw, "lastSentence"),
		MusicTitle:    str(raw, "musicTitle"),
		MusicArtist:   str(raw, "musicArtist"),
		Weather:       str(raw, "weather"),
		SpineColor:    str(raw, "spineColor"),
		FontColor:     str(raw, "fontColor"),
		Review:        str(raw, "review"),
	}

	item.Ownership = models.OwnershipOwned
	if o, ok := models.ParseOwnership(str(raw, "ownership")); ok {
		item.Ownership = o
	}

	item.ReadingStatus = models.ReadingUnstarted
	if rs, ok := models.ParseReadingStatus(str(raw, "readingStatus")); ok {
		item.ReadingStatus = rs
	}

	if rs, ok := models.ParseRecordStatus(str(raw, "recordStatus")); ok {
		item.RecordStatus = rs
	}

	item.ReadingPeriods = periods(raw["readingPeriods"])
	return item
}

func str(raw Raw, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func number(raw Raw, key string) float64 {
	switch v := raw[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	}
	return 0
}

func integer(raw Raw, key string) int {
	f := number(raw, key)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

func boolean(raw Raw, key string) bool {
	switch v := raw[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

func periods(v any) []models.ReadingPeriod {
	var out []models.ReadingPeriod
	add := func(start, end string) {
		if start == "" && end == "" {
			return
		}
		out = append(out, models.ReadingPeriod{Start: start, End: end})
	}

	switch list := v.(type) {
	case []any:
		for _, entry := range list {
			if m, ok := entry.(map[string]any); ok {
				add(str(m, "start"), str(m, "end"))
			}
		}
	case []map[string]any:
		for _, m := range list {
			add(str(m, "start"), str(m, "end"))
		}
	case []models.ReadingPeriod:
		for _, p := range list {
			add(p.Start, p.End)
		}
	}
	return out
}
