package importexport

import (
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

var ErrInvalidDocument = errors.New("invalid import document")

// Item is one bookmark in an import document.
type Item struct {
	URL       string `json:"url"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at,omitempty"`
}

// first returns the first non-empty string among the given keys.
func first(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// ParseDocument reads either {"bookmarks": [...]} or a bare array. Pinboard
// exports are accepted too (href, extended, time).
func ParseDocument(data []byte) ([]Item, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidDocument
	}

	root := gjson.ParseBytes(data)
	list := root
	if root.IsObject() {
		list = root.Get("bookmarks")
	}
	if !list.IsArray() {
		return nil, ErrInvalidDocument
	}

	var items []Item
	list.ForEach(func(_, v gjson.Result) bool {
		items = append(items, Item{
			URL:       first(v, "url", "href"),
			Body:      first(v, "body", "extended", "description"),
			CreatedAt: first(v, "created_at", "time"),
		})
		return true
	})
	return items, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	return t.UTC(), err
}
