package stats

import (
	"sort"

	"bookshelf/internal/models"
)

// Summary is the aggregate view of a collection
type Summary struct {
	Total          int                          `json:"total"`
	ByGroup        map[models.Group]int         `json:"byGroup"`
	ByStatus       map[models.ReadingStatus]int `json:"byStatus"`
	ByCountry      []CountryCount               `json:"byCountry"`
	FinishedByYear map[string]int               `json:"finishedByYear"`
	AverageRating  float64                      `json:"averageRating"`
	RatedCount     int                          `json:"ratedCount"`
	PagesRead      int                          `json:"pagesRead"`
	TotalPrice     int                          `json:"totalPrice"`
}

// CountryCount is the number of items from one country
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// Summarize aggregates a collection. It does not modify its argument.
func Summarize(c models.Collection) Summary {
	s := Summary{
		ByGroup:        make(map[models.Group]int, len(models.Groups)),
		ByStatus:       make(map[models.ReadingStatus]int, len(models.ReadingStatuses)),
		FinishedByYear: make(map[string]int),
	}
	for _, g := range models.Groups {
		s.ByGroup[g] = len(c.Group(g))
	}

	countries := make(map[string]int)
	var ratingSum float64
	for _, item := range c.All() {
		s.Total++
		s.ByStatus[item.ReadingStatus]++
		countries[models.NormalizeCountry(item.Country)]++
		s.TotalPrice += item.Price

		if item.Rating > 0 {
			ratingSum += item.Rating
			s.RatedCount++
		}
		if item.ReadingStatus == models.ReadingFinished {
			s.PagesRead += item.PageCount
			if year := finishedYear(item); year != "" {
				s.FinishedByYear[year]++
			}
		}
	}
	if s.RatedCount > 0 {
		s.AverageRating = ratingSum / float64(s.RatedCount)
	}

	for country, n := range countries {
		s.ByCountry = append(s.ByCountry, CountryCount{Country: country, Count: n})
	}
	sort.Slice(s.ByCountry, func(i, j int) bool {
		if s.ByCountry[i].Count != s.ByCountry[j].Count {
			return s.ByCountry[i].Count > s.ByCountry[j].Count
		}
		return s.ByCountry[i].Country < s.ByCountry[j].Country
	})
	return s
}

// finishedYear is the year of the latest reading period end date
func finishedYear(item models.Item) string {
	latest := ""
	for _, p := range item.ReadingPeriods {
		if len(p.End) >= 4 && p.End > latest {
			latest = p.End
		}
	}
	if latest == "" {
		return ""
	}
	return latest[:4]
}
