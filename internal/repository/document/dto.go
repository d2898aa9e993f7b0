package document

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"time"

	domdoc "github.com/koralov/raggate/internal/domain/document"
)

// Hash field names. The filterable subset must match the index schema
// aliases used by Schema.
const (
	fieldTitle      = "title"
	fieldContent    = "content"
	fieldSummary    = "summary"
	fieldCategory   = "category"
	fieldDepartment = "department"
	fieldTags       = "tags"
	fieldAuthor     = "author"
	fieldDate       = "date"
	fieldDateTS     = "date_ts"
	fieldMonth      = "month"
	fieldSourceURL  = "source_url"
	fieldVector     = "vector"
)

const monthLayout = "2006-01"

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
func buildHashFields(doc *domdoc.Document) map[string]string {
	m := map[string]string{
		fieldTitle:   doc.Title(),
		fieldContent: doc.Content(),
		fieldSummary: doc.Summary(),
	}
	if doc.Category() != "" {
		m[fieldCategory] = doc.Category()
	}
	if doc.Department() != "" {
		m[fieldDepartment] = doc.Department()
	}
	if len(doc.Tags()) > 0 {
		m[fieldTags] = strings.Join(doc.Tags(), ",")
	}
	if doc.Author() != "" {
		m[fieldAuthor] = doc.Author()
	}
	if !doc.Date().IsZero() {
		m[fieldDate] = doc.Date().UTC().Format(time.RFC3339)
		m[fieldDateTS] = strconv.FormatInt(doc.Date().Unix(), 10)
		m[fieldMonth] = doc.Date().UTC().Format(monthLayout)
	}
	if doc.SourceURL() != "" {
		m[fieldSourceURL] = doc.SourceURL()
	}
	if len(doc.Embedding()) > 0 {
		m[fieldVector] = vectorToBytes(doc.Embedding())
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id string, m map[string]string) domdoc.Document {
	var date time.Time
	if v := m[fieldDate]; v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			date = ts
		}
	}

	var tags []string
	if v := m[fieldTags]; v != "" {
		tags = strings.Split(v, ",")
	}

	var vector []float32
	if v := m[fieldVector]; v != "" {
		vector = bytesToVector(v)
	}

	return domdoc.Reconstruct(
		id,
		m[fieldTitle],
		m[fieldContent],
		m[fieldSummary],
		m[fieldCategory],
		m[fieldDepartment],
		tags,
		m[fieldAuthor],
		date,
		m[fieldSourceURL],
		vector,
	)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
