package entities

import "time"

// BreachRecord is one normalized HaveIBeenPwned breach
type BreachRecord struct {
	Name        string   `json:"name" yaml:"name"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Domain      string   `json:"domain,omitempty" yaml:"domain,omitempty"`
	PwnCount    int64    `json:"pwn_count" yaml:"pwn_count"`
	AddedDate   string   `json:"added_date" yaml:"added_date"` // YYYY-MM-DD
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	DataClasses []string `json:"data_classes" yaml:"data_classes"`
	Placeholder bool     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`

	AddedAt time.Time `json:"-" yaml:"-"`
}

// PlaceholderBreach returns the record rendered when the feed is unavailable
func PlaceholderBreach() BreachRecord {
	return BreachRecord{
		Name:        NotAvailable,
		AddedDate:   NotAvailable,
		DataClasses: []string{},
		Placeholder: true,
	}
}
