package models

import (
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecomputeAggregates rebuilds the validation's status counters and
// its component/feature id lists from the Results it owns, then saves
// the validation. Counters are derived data; nothing else may write
// them.
func RecomputeAggregates(db *gorm.DB, v *Validation) error {
	v.ResetCounters()

	type statusCount struct {
		TestStatus string
		Total      int
	}
	var counts []statusCount
	err := db.Model(&Result{}).
		Select("statuses.test_status AS test_status, COUNT(*) AS total").
		Joins("JOIN statuses ON statuses.id = results.status_id").
		Where("results.validation_id = ?", v.ID).
		Group("statuses.test_status").
		Scan(&counts).Error
	if err != nil {
		return errors.Wrap(err, "counting result statuses")
	}
	for _, count := range counts {
		v.SetByStatus(count.TestStatus, count.Total)
	}

	var componentIDs []uint
	err = db.Model(&Result{}).
		Where("validation_id = ?", v.ID).
		Distinct("component_id").
		Order("component_id").
		Pluck("component_id", &componentIDs).Error
	if err != nil {
		return errors.Wrap(err, "collecting components")
	}
	v.Components = datatypes.JSONSlice[uint](componentIDs)

	var featureIDs []uint
	err = db.Model(&ResultFeature{}).
		Joins("JOIN results ON results.id = result_features.result_id").
		Where("results.validation_id = ?", v.ID).
		Distinct("result_features.feature_id").
		Order("result_features.feature_id").
		Pluck("result_features.feature_id", &featureIDs).Error
	if err != nil {
		return errors.Wrap(err, "collecting features")
	}
	v.Features = datatypes.JSONSlice[uint](featureIDs)

	return errors.Wrap(db.Save(v).Error, "saving validation aggregates")
}
