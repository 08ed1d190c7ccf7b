package models

// Group names one of the three mutually exclusive collections an Item lives in
type Group string

const (
	GroupOwned       Group = "owned"
	GroupPassedAlong Group = "passed_along"
	GroupEbook       Group = "ebook"
)

// Groups lists every group in display order
var Groups = []Group{GroupOwned, GroupPassedAlong, GroupEbook}

// ParseGroup accepts a group name, tolerating case and a few short forms
func ParseGroup(s string) (Group, bool) {
	switch normalizeToken(s) {
	case "owned", "own", "mine":
		return GroupOwned, true
	case "passed_along", "passed", "passedalong", "given":
		return GroupPassedAlong, true
	case "ebook", "e-book", "digital":
		return GroupEbook, true
	}
	return "", false
}

// Ownership is the classification attribute that decides an Item's group
type Ownership string

const (
	OwnershipOwned       Ownership = "owned"
	OwnershipPassedAlong Ownership = "passed_along"
	OwnershipEbook       Ownership = "ebook"
)

// Group returns the group implied by the ownership classification.
// Unknown values land in the owned group.
func (o Ownership) Group() Group {
	switch o {
	case OwnershipPassedAlong:
		return GroupPassedAlong
	case OwnershipEbook:
		return GroupEbook
	default:
		return GroupOwned
	}
}

// Ownership returns the classification that places an Item in g
func (g Group) Ownership() Ownership {
	switch g {
	case GroupPassedAlong:
		return OwnershipPassedAlong
	case GroupEbook:
		return OwnershipEbook
	default:
		return OwnershipOwned
	}
}

// ParseOwnership maps a stored ownership token onto the canonical value
func ParseOwnership(s string) (Ownership, bool) {
	g, ok := ParseGroup(s)
	if !ok {
		return "", false
	}
	return g.Ownership(), true
}

// ReadingStatus is the progress state of a single Item
type ReadingStatus string

const (
	ReadingUnstarted  ReadingStatus = "unstarted"
	ReadingInProgress ReadingStatus = "in_progress"
	ReadingFinished   ReadingStatus = "finished"
	ReadingExcerpted  ReadingStatus = "excerpted"
	ReadingPaused     ReadingStatus = "paused"
)

// ReadingStatuses lists every canonical reading status
var ReadingStatuses = []ReadingStatus{
	ReadingUnstarted, ReadingInProgress, ReadingFinished, ReadingExcerpted, ReadingPaused,
}

// ParseReadingStatus reports whether s is a canonical reading status token
func ParseReadingStatus(s string) (ReadingStatus, bool) {
	for _, rs := range ReadingStatuses {
		if string(rs) == s {
			return rs, true
		}
	}
	return "", false
}

// RecordStatus is the narrative label of a reading record, separate from ReadingStatus.
// The zero value means the record carries no label.
type RecordStatus string

const (
	RecordInProgress RecordStatus = "in progress"
	RecordFinished   RecordStatus = "finished"
	RecordExcerpted  RecordStatus = "excerpted"
	RecordPaused     RecordStatus = "paused"
)

// RecordStatuses lists every canonical record status
var RecordStatuses = []RecordStatus{RecordInProgress, RecordFinished, RecordExcerpted, RecordPaused}

// ParseRecordStatus reports whether s is a canonical record status
func ParseRecordStatus(s string) (RecordStatus, bool) {
	for _, rs := range RecordStatuses {
		if string(rs) == s {
			return rs, true
		}
	}
	return "", false
}

// ReadingPeriod is one stretch of reading. Dates are YYYY-MM-DD and either may be empty.
type ReadingPeriod struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Item represents one book in the collection
type Item struct {
	ID            string `json:"id"`
	Title         string `json:"title" validate:"required"`
	Author        string `json:"author"`
	Translator    string `json:"translator,omitempty"`
	Publisher     string `json:"publisher,omitempty"`
	PublishedDate string `json:"publishedDate,omitempty"`
	Cover         string `json:"cover,omitempty"`
	Description   string `json:"description,omitempty"`
	ISBN          string `json:"isbn,omitempty"`
	Category      string `json:"category,omitempty"`
	Series        string `json:"series,omitempty"`
	PageCount     int    `json:"pageCount,omitempty" validate:"gte=0"`
	Format        string `json:"format,omitempty"`
	Price         int    `json:"price" validate:"gte=0"`
	Country       string `json:"country" validate:"required,max=2"`

	Ownership     Ownership     `json:"ownership" validate:"oneof=owned passed_along ebook"`
	ReadingStatus ReadingStatus `json:"readingStatus" validate:"oneof=unstarted in_progress finished excerpted paused"`

	Source string `json:"source,omitempty"`
	Resale bool   `json:"resale,omitempty"`

	ReadingPeriods []ReadingPeriod `json:"readingPeriods,omitempty"`
	RecordStatus   RecordStatus    `json:"recordStatus,omitempty"`
	Rating         float64         `json:"rating,omitempty" validate:"gte=0,lte=5"`

	FirstSentence string `json:"firstSentence,omitempty"`
	LastSentence  string `json:"lastSentence,omitempty"`
	MusicTitle    string `json:"musicTitle,omitempty"`
	MusicArtist   string `json:"musicArtist,omitempty"`
	Weather       string `json:"weather,omitempty"`

	SpineColor string `json:"spineColor,omitempty"`
	FontColor  string `json:"fontColor,omitempty"`

	Review string `json:"review,omitempty"`
}

// Group returns the group implied by the item's ownership
func (i Item) Group() Group {
	return i.Ownership.Group()
}

// Clone returns a copy that shares no slices with i
func (i Item) Clone() Item {
	if i.ReadingPeriods != nil {
		periods := make([]ReadingPeriod, len(i.ReadingPeriods))
		copy(periods, i.ReadingPeriods)
		i.ReadingPeriods = periods
	}
	return i
}
