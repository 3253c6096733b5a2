package core

import (
	"slices"
	"strings"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// LookupByID finds an entry by its journal id.
// Returns nil if not found.
func LookupByID(entries []model.Entry, id string) *model.Entry {
	for i := range entries {
		if entries[i].EntryID == id {
			return &entries[i]
		}
	}
	return nil
}

// LookupByIndex finds an entry by its 1-based index.
// Returns nil if index is out of bounds.
func LookupByIndex(entries []model.Entry, index int) *model.Entry {
	idx := index - 1
	if idx < 0 || idx >= len(entries) {
		return nil
	}
	return &entries[idx]
}

// Search finds entries whose metadata values contain term, ignoring case.
func Search(entries []model.Entry, term string) []model.Entry {
	if term == "" {
		return entries
	}

	term = strings.ToLower(term)
	var result []model.Entry
	for _, e := range entries {
		for _, v := range e.Metadata {
			if strings.Contains(strings.ToLower(v), term) {
				result = append(result, e)
				break
			}
		}
	}
	return result
}

// UniqueClients returns the sorted set of producers that appear in entries.
func UniqueClients(entries []model.Entry) []model.ClientID {
	seen := make(map[model.ClientID]bool)
	var clients []model.ClientID
	for _, e := range entries {
		if e.Client != "" && !seen[e.Client] {
			seen[e.Client] = true
			clients = append(clients, e.Client)
		}
	}
	slices.Sort(clients)
	return clients
}
