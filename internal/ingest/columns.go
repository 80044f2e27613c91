package ingest

import (
	"sort"
	"strings"

	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/internal/reconcile"
	"github.com/collate-cloud/collate/pkg/workbook"
)

// Logical column keys, in sheet-caption order.
const (
	colDriverName    = "driverName"
	colItemName      = "itemName"
	colItemArgs      = "itemArgs"
	colComponentName = "componentName"
	colExecStart     = "execStart"
	colExecEnd       = "execEnd"
	colEnvName       = "envName"
	colOsVersion     = "osVersion"
	colOsFamily      = "osName"
	colPlatformName  = "platformName"
	colResultKey     = "resultKey"
	colStatus        = "status"
	colTestRun       = "testRun"
	colTestSession   = "testSession"
	colResultURL     = "resultURL"
	colReason        = "reason"
)

// nameMapping translates sheet captions, lowercased, to logical keys.
var nameMapping = map[string]string{
	"buildversion":            colDriverName,
	"item name":               colItemName,
	"args":                    colItemArgs,
	"component":               colComponentName,
	"execution start time":    colExecStart,
	"execution end time":      colExecEnd,
	"environment":             colEnvName,
	"operating system":        colOsVersion,
	"operating system family": colOsFamily,
	"platform":                colPlatformName,
	"result key":              colResultKey,
	"status":                  colStatus,
	"test run":                colTestRun,
	"test session":            colTestSession,
	"url":                     colResultURL,
	"reason":                  colReason,
}

// captionOf is the reverse mapping, for error messages.
var captionOf = func() map[string]string {
	m := make(map[string]string, len(nameMapping))
	for caption, key := range nameMapping {
		m[key] = caption
	}
	return m
}()

// Mapping binds logical column keys to cell indexes of one sheet.
type Mapping struct {
	sheet   workbook.Sheet
	columns map[string]int
}

// MapColumns matches the sheet's header captions against the fixed
// column set. A partial match records a missing-columns error naming every
// absent caption and returns nil.
func MapColumns(sheet workbook.Sheet, out *outcome.Builder) *Mapping {
	columns := map[string]int{}
	for index, caption := range sheet.Header() {
		if caption == "" {
			continue
		}
		if key, ok := nameMapping[strings.ToLower(strings.TrimSpace(caption))]; ok {
			columns[key] = index
		}
	}

	if len(columns) != len(nameMapping) {
		var missing []string
		for caption, key := range nameMapping {
			if _, ok := columns[key]; !ok {
				missing = append(missing, caption)
			}
		}
		sort.Strings(missing)
		out.AddMissingColumnsError(missing)
		return nil
	}

	return &Mapping{sheet: sheet, columns: columns}
}

func (m *Mapping) cell(row []string, key string) string {
	index := m.columns[key]
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// Record maps one data row onto the reconciler's input.
func (m *Mapping) Record(row []string) reconcile.Record {
	return reconcile.Record{
		DriverName:    m.cell(row, colDriverName),
		ItemName:      m.cell(row, colItemName),
		ItemArgs:      m.cell(row, colItemArgs),
		ComponentName: m.cell(row, colComponentName),
		ExecStart:     m.cell(row, colExecStart),
		ExecEnd:       m.cell(row, colExecEnd),
		EnvName:       m.cell(row, colEnvName),
		OsVersion:     m.cell(row, colOsVersion),
		OsFamily:      m.cell(row, colOsFamily),
		PlatformName:  m.cell(row, colPlatformName),
		ResultKey:     m.cell(row, colResultKey),
		Status:        m.cell(row, colStatus),
		TestRun:       m.cell(row, colTestRun),
		TestSession:   m.cell(row, colTestSession),
		ResultURL:     m.cell(row, colResultURL),
		Reason:        m.cell(row, colReason),
	}
}

// DistinctValues collects the distinct cell values of one logical
// column over all data rows, in first-seen order.
func (m *Mapping) DistinctValues(key string) []string {
	var values []string
	seen := map[string]struct{}{}

	_ = workbook.DataRows(m.sheet.Rows(), func(row []string) error {
		value := m.cell(row, key)
		if _, ok := seen[value]; !ok {
			seen[value] = struct{}{}
			values = append(values, value)
		}
		return nil
	})

	return values
}
