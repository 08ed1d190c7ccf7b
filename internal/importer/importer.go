// Package importer turns spreadsheet exports into candidate items for the collection store.
//
// Headers are matched loosely against English and Korean column names. Every data row is
// mapped onto a raw record and decoded through the legacy normalizer, so imported items get
// the same defaults as records read back from storage.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"bookshelf/internal/models"
	"bookshelf/internal/normalize"
)

// ErrNoTitleColumn is returned when no header cell can be read as the title column
var ErrNoTitleColumn = errors.New("importer: no title column")

// Candidate is one parsed row, ready to be passed to the store's Create
type Candidate struct {
	Group models.Group
	Item  models.Item
}

// headerAliases maps a folded header cell to the raw record key it fills
var headerAliases = map[string]string{
	"title": "title", "booktitle": "title", "name": "title", "제목": "title", "도서명": "title", "책제목": "title",
	"author": "author", "authors": "author", "writer": "author", "저자": "author", "작가": "author", "지은이": "author",
	"translator": "translator", "역자": "translator", "번역": "translator", "옮긴이": "translator",
	"publisher": "publisher", "출판사": "publisher", "출판": "publisher",
	"publisheddate": "publishedDate", "pubdate": "publishedDate", "published": "publishedDate",
	"출간일": "publishedDate", "출판일": "publishedDate", "발행일": "publishedDate",
	"isbn": "isbn", "isbn13": "isbn", "isbn10": "isbn",
	"category": "category", "genre": "category", "카테고리": "category", "분류": "category", "장르": "category",
	"series": "series", "시리즈": "series",
	"pages": "pageCount", "pagecount": "pageCount", "쪽수": "pageCount", "페이지": "pageCount", "페이지수": "pageCount",
	"format": "format", "형태": "format", "판형": "format",
	"price": "price", "가격": "price", "정가": "price",
	"country": "country", "국가": "country", "나라": "country",
	"ownership": "ownership", "group": "ownership", "구분": "ownership", "소장": "ownership", "소장형태": "ownership",
	"status": "readingStatus", "readingstatus": "readingStatus", "상태": "readingStatus", "독서상태": "readingStatus",
	"start": "startDate", "startdate": "startDate", "시작일": "startDate", "읽기시작": "startDate",
	"end": "endDate", "enddate": "endDate", "finished": "endDate", "완료일": "endDate", "완독일": "endDate",
	"rating": "rating", "stars": "rating", "별점": "rating", "평점": "rating",
	"source": "source", "purchasedfrom": "source", "구입처": "source", "구매처": "source",
	"review": "review", "memo": "review", "notes": "review", "리뷰": "review", "메모": "review", "감상": "review",
}

// dateKeys are raw keys whose cells are normalized to YYYY-MM-DD
var dateKeys = map[string]bool{"publishedDate": true, "startDate": true, "endDate": true}

// numberKeys are raw keys whose cells may carry units or thousands separators
var numberKeys = map[string]bool{"pageCount": true, "price": true, "rating": true}

// statusWords maps spreadsheet reading status labels onto canonical tokens
var statusWords = map[string]models.ReadingStatus{
	"unstarted": models.ReadingUnstarted, "unread": models.ReadingUnstarted, "toread": models.ReadingUnstarted,
	"안읽음": models.ReadingUnstarted, "읽을예정": models.ReadingUnstarted,
	"inprogress": models.ReadingInProgress, "reading": models.ReadingInProgress, "읽는중": models.ReadingInProgress,
	"finished": models.ReadingFinished, "done": models.ReadingFinished, "완독": models.ReadingFinished,
	"excerpted": models.ReadingExcerpted, "발췌": models.ReadingExcerpted,
	"paused": models.ReadingPaused, "stopped": models.ReadingPaused, "중단": models.ReadingPaused,
}

// ownershipWords maps Korean ownership labels onto groups. Other labels go through ParseGroup.
var ownershipWords = map[string]models.Group{
	"소장": models.GroupOwned, "종이책": models.GroupOwned,
	"방출": models.GroupPassedAlong, "나눔": models.GroupPassedAlong, "판매": models.GroupPassedAlong,
	"전자책": models.GroupEbook, "이북": models.GroupEbook,
}

// Parse reads a CSV document whose first row is a header. Rows without a title are skipped.
func Parse(r io.Reader) ([]Candidate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoTitleColumn
	}
	if err != nil {
		return nil, fmt.Errorf("importer: read header: %w", err)
	}

	columns := matchHeader(header)
	hasTitle := false
	for _, key := range columns {
		if key == "title" {
			hasTitle = true
		}
	}
	if !hasTitle {
		return nil, ErrNoTitleColumn
	}

	var out []Candidate
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("importer: read row: %w", err)
		}
		if c, ok := candidate(columns, record); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// matchHeader resolves each header cell to a raw key. Unknown cells and repeats of an
// already matched key resolve to "".
func matchHeader(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]bool)
	for i, cell := range header {
		key := headerAliases[fold(cell)]
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		columns[i] = key
	}
	return columns
}

func candidate(columns []string, record []string) (Candidate, bool) {
	raw := normalize.Raw{}
	for i, key := range columns {
		if key == "" || i >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[i])
		if value == "" {
			continue
		}
		switch {
		case dateKeys[key]:
			value = NormalizeDate(value)
		case numberKeys[key]:
			value = digits(value)
		case key == "readingStatus":
			if rs, ok := statusWords[fold(value)]; ok {
				value = string(rs)
			}
		}
		raw[key] = value
	}

	if strings.TrimSpace(stringValue(raw, "title")) == "" {
		return Candidate{}, false
	}

	group := parseOwnership(stringValue(raw, "ownership"))
	raw["ownership"] = string(group.Ownership())

	item := normalize.Normalize(raw)
	item.Title = strings.TrimSpace(item.Title)
	item.Category = strings.TrimSpace(item.Category)
	return Candidate{Group: group, Item: item}, true
}

func parseOwnership(s string) models.Group {
	if g, ok := ownershipWords[fold(s)]; ok {
		return g
	}
	if g, ok := models.ParseGroup(s); ok {
		return g
	}
	return models.GroupOwned
}

func stringValue(raw normalize.Raw, key string) string {
	s, _ := raw[key].(string)
	return s
}

// NormalizeDate rewrites dates such as 2023.1.5, 2023/01/05 or 2023년 1월 5일 as
// 2023-01-05. A year and month alone become 2023-01. Anything else is returned trimmed.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	if len(parts) < 2 || len(parts) > 3 || len(parts[0]) != 4 {
		return s
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return s
		}
		nums[i] = n
	}
	if nums[1] < 1 || nums[1] > 12 {
		return s
	}
	if len(nums) == 2 {
		return fmt.Sprintf("%04d-%02d", nums[0], nums[1])
	}
	if nums[2] < 1 || nums[2] > 31 {
		return s
	}
	return fmt.Sprintf("%04d-%02d-%02d", nums[0], nums[1], nums[2])
}

// digits keeps the digits and decimal point of s, so 15,000원 reads as 15000
func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' {
			return r
		}
		return -1
	}, s)
}

// fold keeps only the letters and digits of the lowercased s
func fold(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
