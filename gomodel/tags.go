// Package gomodel provides parsing and representation of 'db' struct tags.
package gomodel

import (
	"fmt"
	"strings"
)

// AutoStrategy names how a primary key is assigned when left zero on insert.
type AutoStrategy string

const (
	// AutoNone means the caller supplies the key.
	AutoNone AutoStrategy = ""
	// AutoUUID generates a random UUID string before insert.
	AutoUUID AutoStrategy = "uuid"
	// AutoIncrement lets the store assign the key and reads it back.
	AutoIncrement AutoStrategy = "increment"
)

// FieldTag contains the structured representation of a parsed `db` struct tag.
type FieldTag struct {
	// Name is the column name.
	Name string
	// Key marks the primary key column.
	Key bool
	// Unique marks a table-unique, non-key column.
	Unique bool
	// Auto selects how a zero key is filled on insert.
	Auto AutoStrategy
	// Created marks the creation timestamp column.
	Created bool
	// Updated marks the last-update timestamp column.
	Updated bool
	// Deleted marks the soft-delete timestamp column.
	Deleted bool
	// Skip indicates the field should be ignored by the ORM.
	Skip bool
}

// ParseTag parses the content of a `db` struct tag into a FieldTag structure.
// The first element is the column name; the remaining elements are options:
// key, unique, auto=uuid|increment, created, updated, deleted.
func ParseTag(tag string) (FieldTag, error) {
	if tag == "" || tag == "-" {
		return FieldTag{Skip: tag == "-"}, nil
	}

	parts := strings.Split(tag, ",")
	ft := FieldTag{}

	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if i == 0 && !isTagOption(part) {
			ft.Name = part
			continue
		}

		switch {
		case part == "key":
			ft.Key = true
		case part == "unique":
			ft.Unique = true
		case part == "created":
			ft.Created = true
		case part == "updated":
			ft.Updated = true
		case part == "deleted":
			ft.Deleted = true
		case part == "-":
			ft.Skip = true
		case strings.HasPrefix(part, "auto="):
			switch s := AutoStrategy(strings.TrimPrefix(part, "auto=")); s {
			case AutoUUID, AutoIncrement:
				ft.Auto = s
			default:
				return FieldTag{}, fmt.Errorf("unknown auto strategy %q", s)
			}
		default:
			return FieldTag{}, fmt.Errorf("unknown tag option: %q", part)
		}
	}

	if ft.Auto != AutoNone && !ft.Key {
		return FieldTag{}, fmt.Errorf("auto=%s requires key", ft.Auto)
	}
	if ft.Key && ft.Deleted {
		return FieldTag{}, fmt.Errorf("key column cannot be the deleted column")
	}
	return ft, nil
}

func isTagOption(part string) bool {
	switch part {
	case "key", "unique", "created", "updated", "deleted", "-":
		return true
	}
	return strings.Contains(part, "=")
}
