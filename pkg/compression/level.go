// Package compression maps image quality tiers to encoder settings.
package compression

import "strings"

// Level is a named image-encoding quality tier.
//
// The zero value means "no compression requested" and is only meaningful to
// callers that treat compression as optional (the local CLI). It is never
// Valid.
type Level string

const (
	High   Level = "high"
	Medium Level = "medium"
	Low    Level = "low"
)

// Default is the level every new session starts with.
const Default = Medium

type policy struct {
	quality int
	label   string
}

var policies = map[Level]policy{
	High:   {quality: 95, label: "High Quality (95%)"},
	Medium: {quality: 85, label: "Medium Quality (85%)"},
	Low:    {quality: 70, label: "Low Quality (70%)"},
}

// All returns every level, best quality first.
func All() []Level {
	return []Level{High, Medium, Low}
}

// Valid reports whether l is one of the closed set of levels.
func (l Level) Valid() bool {
	_, ok := policies[l]
	return ok
}

// Quality returns the JPEG encoder quality for l.
func (l Level) Quality() int {
	return policies[l.orDefault()].quality
}

// Label returns the human readable name for l.
func (l Level) Label() string {
	return policies[l.orDefault()].label
}

func (l Level) String() string {
	return string(l)
}

func (l Level) orDefault() Level {
	if l.Valid() {
		return l
	}
	return Default
}

// Parse is lenient: anything unrecognized becomes Medium.
func Parse(s string) Level {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if l.Valid() {
		return l
	}
	return Default
}
