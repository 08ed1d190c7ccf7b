package models

import "strings"

// Section markers of the review micro-format. Each marker sits on its own line and the
// section body runs until the next marker.
const (
	markerPurchase = "[purchase]"
	markerQuality  = "[quality]"
	markerBody     = "[review]"
)

// Review is the structured form of Item.Review
type Review struct {
	PurchaseReason string
	BuildQuality   string
	Body           string
}

// ParseReview splits a stored review into its sections. Text without any marker is the body.
func ParseReview(s string) Review {
	var (
		r       Review
		current *string
		lines   []string
		sawMark bool
	)
	flush := func() {
		if current != nil {
			*current = strings.TrimSpace(strings.Join(lines, "\n"))
		}
		lines = lines[:0]
	}
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		var next *string
		switch strings.ToLower(strings.TrimSpace(line)) {
		case markerPurchase:
			next = &r.PurchaseReason
		case markerQuality:
			next = &r.BuildQuality
		case markerBody:
			next = &r.Body
		}
		if next != nil {
			flush()
			current = next
			sawMark = true
			continue
		}
		lines = append(lines, line)
	}
	if !sawMark {
		return Review{Body: strings.TrimSpace(s)}
	}
	flush()
	return r
}

// String serializes the review. Empty sections are left out; a review that only has a body
// is stored as plain text.
func (r Review) String() string {
	if r.PurchaseReason == "" && r.BuildQuality == "" {
		return r.Body
	}
	var b strings.Builder
	write := func(marker, text string) {
		if text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(marker)
		b.WriteString("\n")
		b.WriteString(text)
	}
	write(markerPurchase, r.PurchaseReason)
	write(markerQuality, r.BuildQuality)
	write(markerBody, r.Body)
	return b.String()
}
