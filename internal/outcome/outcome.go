// Package outcome collects errors, warnings and change tallies for
// one import/merge/clone job and shapes the caller-visible report.
package outcome

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Code is a stable, caller-visible error code.
type Code string

const (
	CodeEmptyValidationName    Code = "ERR_EMPTY_VALIDATION_NAME"
	CodeNonexistentValidation  Code = "ERR_NONEXISTENT_VALIDATION_ID"
	CodeInvalidValidationID    Code = "ERR_INVALID_VALIDATION_ID"
	CodeExistingValidation     Code = "ERR_EXISTING_VALIDATION"
	CodeDuplicateValidation    Code = "ERR_DUPLICATE_VALIDATION"
	CodeValidationList         Code = "ERR_VALIDATION_LIST"
	CodeAmbiguousColumn        Code = "ERR_AMBIGUOUS_COLUMN"
	CodeMissingColumns         Code = "ERR_MISSING_COLUMNS"
	CodeMissingEntity          Code = "ERR_MISSING_ENTITY"
	CodeWorkbookException      Code = "ERR_WORKBOOK_EXCEPTION"
	CodeExistingRun            Code = "ERR_EXISTING_RUN"
	CodeDateFormat             Code = "ERR_DATE_FORMAT"
	CodeItemChanged            Code = "ERR_ITEM_CHANGED"
	CodeUnsupportedEntityKind  Code = "ERR_UNSUPPORTED_ENTITY_KIND"
)

// EntityRef names the entity (and the attempted field values) behind
// a missing-entity or existing-validation error, so the caller can
// offer a "create it" affordance.
type EntityRef struct {
	Model  string            `json:"model"`
	Fields map[string]string `json:"fields"`
}

// Error is one job-failing condition. Errors are deduplicated by
// their full content before storage.
type Error struct {
	Code    Code                `json:"code"`
	Message string              `json:"message"`
	Entity  *EntityRef          `json:"entity,omitempty"`
	Column  string              `json:"column,omitempty"`
	Values  []string            `json:"values,omitempty"`
	Old     string              `json:"old,omitempty"`
	New     string              `json:"new,omitempty"`
	Items   map[string][]string `json:"items,omitempty"`
}

// Changes tallies the per-row decisions of an import batch.
type Changes struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Report is the JSON-like outcome returned to the caller.
type Report struct {
	Success  bool           `json:"success"`
	JobID    uint           `json:"job_id,omitempty"`
	Changes  *Changes       `json:"changes,omitempty"`
	Errors   []Error        `json:"errors,omitempty"`
	Warnings map[string]int `json:"warnings,omitempty"`
}

// Builder accumulates a job's outcome.
type Builder struct {
	JobID        uint
	Changes      Changes
	TrackChanges bool

	errors   []Error
	warnings map[string]int
}

func New() *Builder {
	return &Builder{warnings: map[string]int{}}
}

// IsSuccess reports whether no errors and no warnings accumulated.
func (b *Builder) IsSuccess() bool {
	return len(b.errors)+len(b.warnings) == 0
}

// Errors returns the deduplicated errors in insertion order.
func (b *Builder) Errors() []Error {
	return b.errors
}

// Warnings returns warning messages with occurrence counts.
func (b *Builder) Warnings() map[string]int {
	return b.warnings
}

// IssueCount returns the number of accumulated issues, counting every
// warning occurrence. Callers snapshot it around a unit of work to tell
// whether that unit contributed anything.
func (b *Builder) IssueCount() int {
	n := len(b.errors)
	for _, count := range b.warnings {
		n += count
	}
	return n
}

// HasCode reports whether an error with the given code accumulated.
func (b *Builder) HasCode(code Code) bool {
	for _, e := range b.errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Build renders the caller-visible report.
func (b *Builder) Build() Report {
	if b.IsSuccess() {
		report := Report{Success: true, JobID: b.JobID}
		if b.TrackChanges {
			changes := b.Changes
			report.Changes = &changes
		}
		return report
	}

	return Report{
		Success:  false,
		Errors:   b.errors,
		Warnings: b.warnings,
	}
}

// AddWarning counts a non-fatal message.
func (b *Builder) AddWarning(warning string) {
	b.warnings[warning]++
}

func (b *Builder) addError(err Error) {
	for _, existing := range b.errors {
		if reflect.DeepEqual(existing, err) {
			return
		}
	}
	b.errors = append(b.errors, err)
}

func (b *Builder) AddEmptyValidationNameError() {
	b.addError(Error{
		Code:    CodeEmptyValidationName,
		Message: "Validation name is empty.",
	})
}

func (b *Builder) AddNonexistentValidationError(message string) {
	b.addError(Error{Code: CodeNonexistentValidation, Message: message})
}

func (b *Builder) AddInvalidValidationError(message string) {
	b.addError(Error{Code: CodeInvalidValidationID, Message: message})
}

func (b *Builder) AddExistingValidationError(message string, fields map[string]string) {
	b.addError(Error{
		Code:    CodeExistingValidation,
		Message: message,
		Entity:  &EntityRef{Model: "Validation", Fields: fields},
	})
}

func (b *Builder) AddDuplicateValidationError(message string) {
	b.addError(Error{Code: CodeDuplicateValidation, Message: message})
}

func (b *Builder) AddValidationListError() {
	b.addError(Error{
		Code:    CodeValidationList,
		Message: "At least two validations must be selected for merge.",
	})
}

func (b *Builder) AddMissingColumnsError(columns []string) {
	b.addError(Error{
		Code:    CodeMissingColumns,
		Message: "Not all columns found, please check import file for correctness.",
		Values:  columns,
	})
}

// AddMissingEntityError records an unresolved mandatory reference:
// a warning for the row plus a job error naming the attempted
// fields. Alias lookups word the warning after the alias contract.
func (b *Builder) AddMissingEntityError(model string, fields map[string]string, isAlias bool) {
	if isAlias {
		b.AddWarning(fmt.Sprintf("%s with name or alias '%s' does not exist.", model, fields["name"]))
	} else {
		b.AddWarning(fmt.Sprintf("%s with properties %s does not exist.", model, formatFields(fields)))
	}

	b.addError(Error{
		Code:    CodeMissingEntity,
		Message: fmt.Sprintf("Missing %s %s", model, formatFields(fields)),
		Entity:  &EntityRef{Model: model, Fields: fields},
	})
}

func (b *Builder) AddWorkbookError(message string) {
	b.addError(Error{Code: CodeWorkbookException, Message: message})
}

func (b *Builder) AddAmbiguousColumnError(column string, values []string) {
	b.addError(Error{
		Code:    CodeAmbiguousColumn,
		Message: "Two or more distinct values in column",
		Column:  column,
		Values:  values,
	})
}

func (b *Builder) AddExistingRunError(name, session string) {
	message := fmt.Sprintf("Run with name '%s' and session '%s' already exist.", name, session)
	b.AddWarning(message)
	b.addError(Error{Code: CodeExistingRun, Message: message})
}

func (b *Builder) AddDateFormatError(field, value string) {
	message := fmt.Sprintf("Unable to auto-convert %s value %q to a date.", field, value)
	b.AddWarning(message)
	b.addError(Error{Code: CodeDateFormat, Message: message})
}

// AddItemChanged records a status-regression conflict. Conflicts
// with the same old/new pair merge into one error, with the affected
// test ids grouped by the item's group name.
func (b *Builder) AddItemChanged(oldStatus, newStatus, group, testID string) {
	message := fmt.Sprintf("Status regression from '%s' to '%s' is not allowed without force.", oldStatus, newStatus)

	for i := range b.errors {
		e := &b.errors[i]
		if e.Code == CodeItemChanged && e.Old == oldStatus && e.New == newStatus {
			e.Items[group] = appendUnique(e.Items[group], testID)
			return
		}
	}

	b.errors = append(b.errors, Error{
		Code:    CodeItemChanged,
		Message: message,
		Old:     oldStatus,
		New:     newStatus,
		Items:   map[string][]string{group: {testID}},
	})
}

func (b *Builder) AddUnsupportedEntityKindError(kind string) {
	b.addError(Error{
		Code:    CodeUnsupportedEntityKind,
		Message: fmt.Sprintf("unsupported entity kind %q", kind),
	})
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: '%s'", key, fields[key]))
	}
	return strings.Join(parts, ", ")
}
