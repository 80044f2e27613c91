package reconcile

import "github.com/collate-cloud/collate/internal/models"

// Record is one column-mapped row of an import sheet. All values
// arrive as raw cell text; resolution against the reference catalog
// happens in the Builder.
type Record struct {
	DriverName    string
	ItemName      string
	ItemArgs      string
	ComponentName string
	ExecStart     string
	ExecEnd       string
	EnvName       string
	OsVersion     string
	OsFamily      string
	PlatformName  string
	ResultKey     string
	Status        string
	TestRun       string
	TestSession   string
	ResultURL     string
	Reason        string
}

// Op is the reconciler's per-row decision.
type Op int

const (
	OpSkip Op = iota
	OpInsert
	OpUpdate
)

// Decision is the outcome of reconciling one record: the operation,
// the Result row to persist (nil on skip), and for updates the
// previous status for the audit trail.
type Decision struct {
	Op          Op
	Result      *models.Result
	OldStatusID uint
}
