// Package summarize condenses a job posting into the fields shown in
// digests and forwarded messages.
package summarize

// Summary holds the result of summarizing a posting's text.
type Summary struct {
	Title    string   // first sentence, truncated
	Stack    []string // technologies mentioned, in catalogue order
	Location string   // first work-type or location hint, empty if none
	Contacts Contacts
	Links    []string // extracted URLs
}

// Contacts are the ways to reach the poster.
type Contacts struct {
	Emails   []string
	Phones   []string
	LinkedIn []string
}

// Empty reports whether no contact was found.
func (c Contacts) Empty() bool {
	return len(c.Emails) == 0 && len(c.Phones) == 0 && len(c.LinkedIn) == 0
}

// Summarizer produces a summary from posting text.
type Summarizer interface {
	Summarize(text string) Summary
}
