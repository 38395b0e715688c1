// Package model defines the data structures shared by every layer.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultAuthor is stored when a paste is submitted without an author.
const DefaultAuthor = "anonymous"

// Paste is a submitted code snippet. Pastes are never edited: a reply is a
// new Paste whose ParentID points at the paste it answers.
type Paste struct {
	ID       int64     `json:"id"`
	Author   string    `json:"author"`
	Title    string    `json:"title"`
	Language string    `json:"language"`
	Code     string    `json:"code"`
	Date     time.Time `json:"date"`
	ParentID *int64    `json:"parentId,omitempty"`
	Tags     []Tag     `json:"tags"`
}

// HasParent reports whether p is a reply.
func (p *Paste) HasParent() bool {
	return p.ParentID != nil
}

// PasteNode is a paste with its replies, for rendering a reply tree.
type PasteNode struct {
	Paste   Paste       `json:"paste"`
	Replies []PasteNode `json:"replies"`
}

// NewPaste holds the user-submitted fields of a paste before it is stored.
// The validate tags are checked by the service layer after defaults are applied.
//
// Filename and Mimetype are hints only: when Language is empty they are used
// to detect it, and they are never stored.
type NewPaste struct {
	Author   string   `json:"author"   validate:"required,max=50"`
	Title    string   `json:"title"    validate:"required,max=60"`
	Language string   `json:"language" validate:"required,max=30"`
	Code     string   `json:"code"     validate:"required"`
	Tags     TagInput `json:"tags"`
	ParentID *int64   `json:"parentId" validate:"omitempty,gt=0"`
	Filename string   `json:"filename,omitempty" validate:"max=255"`
	Mimetype string   `json:"mimetype,omitempty" validate:"max=100"`
}

// TagInput is the raw tag field of a submission. Clients send either one
// string ("go, web") or a list (["go", "web"]); a list is joined with spaces.
type TagInput string

func (t *TagInput) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = TagInput(strings.Join(list, " "))
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tags must be a string or a list of strings: %w", err)
	}
	*t = TagInput(raw)
	return nil
}
