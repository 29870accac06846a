// internal/app/system/csvutil/members.go

// Package csvutil parses bulk member-import CSVs. Parsing never touches
// the database; callers hand the validated rows to the membership broker.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/app/system/phone"
)

// Upload size and row limits for CSV processing.
const (
	MaxUploadSize = 5 << 20 // 5 MB
	MaxRows       = 20000
)

// MemberRow is one validated row: Phone is in normalized digit form and
// Role is a canonical group role.
type MemberRow struct {
	FullName string
	Phone    string
	Role     string
}

// RowError describes why one line was rejected. Line numbers are 1-based
// and count the header when one is present.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result carries the parse outcome. Rows and Errors are disjoint: a file
// with any bad line still reports every good row, so the caller can
// choose between rejecting the upload and importing the clean subset.
type Result struct {
	Rows   []MemberRow
	Errors []RowError
}

// HasErrors reports whether any line was rejected.
func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

// ParseMembersCSV reads rows of "full name, phone [, role]" from r. A
// header line is detected and skipped. The role column is optional and
// defaults to ordinary member. Returns an error only for unreadable
// input or a file over MaxRows; per-row problems land in Result.Errors.
func ParseMembersCSV(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var res Result
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Reason: "malformed CSV line"})
			continue
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		if len(res.Rows) >= MaxRows {
			return Result{}, fmt.Errorf("csv exceeds %d rows", MaxRows)
		}

		row, reason := normalizeRow(rec)
		if reason != "" {
			res.Errors = append(res.Errors, RowError{Line: line, Reason: reason})
			continue
		}
		if row == (MemberRow{}) {
			continue // blank line
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func isHeader(rec []string) bool {
	if len(rec) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(rec[0]))
	second := strings.ToLower(strings.TrimSpace(rec[1]))
	return (first == "full name" || first == "name") && second == "phone"
}

func normalizeRow(rec []string) (MemberRow, string) {
	var name, rawPhone, role string
	if len(rec) > 0 {
		name = strings.TrimSpace(rec[0])
	}
	if len(rec) > 1 {
		rawPhone = strings.TrimSpace(rec[1])
	}
	if len(rec) > 2 {
		role = strings.ToLower(strings.TrimSpace(rec[2]))
	}

	if name == "" && rawPhone == "" && role == "" {
		return MemberRow{}, ""
	}
	if name == "" {
		return MemberRow{}, "missing full name"
	}
	if rawPhone == "" {
		return MemberRow{}, "missing phone number"
	}
	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return MemberRow{}, "invalid phone number"
	}
	if role == "" {
		role = authz.RoleOrdinaryMember
	}
	if !authz.ValidRole(role) {
		return MemberRow{}, fmt.Sprintf("unknown role %q", role)
	}
	return MemberRow{FullName: name, Phone: normalized, Role: role}, ""
}
