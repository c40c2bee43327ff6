package models

import "time"

// HistoryFilters defines the query options of the history endpoint. It is
// decoded from the query string with gorilla/schema.
type HistoryFilters struct {
	From  time.Time `schema:"from"`
	To    time.Time `schema:"to"`
	Limit int       `schema:"limit"`
}

// EventFilters defines the query options of the event listing.
type EventFilters struct {
	From  time.Time `schema:"from"`
	To    time.Time `schema:"to"`
	Tag   string    `schema:"tag"`
	Limit int       `schema:"limit"`
}
