package models

// All lists every model for migrations.
var All = []interface{}{
	&Generation{},
	&Platform{},
	&Env{},
	&Component{},
	&Kernel{},
	&Driver{},
	&Plugin{},
	&Scenario{},
	&Os{},
	&OsGroup{},
	&Status{},
	&Run{},
	&Feature{},
	&ResultGroup{},
	&GroupMask{},
	&Item{},
	&Validation{},
	&Result{},
	&ResultHistory{},
	&ResultFeature{},
	&ImportJob{},
	&MergeJob{},
	&CloneJob{},
	&User{},
}
