// Package segments holds the data model of a reconciliation pass: the input
// segment descriptors, the per-segment outcome, and the output handed to the
// propagation stage.
package segments

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/segmaster/pkg/errors"
)

// VersionPlaceholder is replaced by the computed version in master name templates.
const VersionPlaceholder = "#{version}"

// Descriptor declares one segment to reconcile.
type Descriptor struct {
	SegmentID            string `json:"segment_id" yaml:"segment_id"`
	Driver               string `json:"driver" yaml:"driver"`
	DevelopmentPID       string `json:"development_pid" yaml:"development_pid"`
	MasterName           string `json:"master_name" yaml:"master_name"`
	ADSOutputStageURI    string `json:"ads_output_stage_uri,omitempty" yaml:"ads_output_stage_uri,omitempty"`
	ADSOutputStagePrefix string `json:"ads_output_stage_prefix,omitempty" yaml:"ads_output_stage_prefix,omitempty"`
}

// Validate checks that the descriptor carries every field reconciliation needs.
func (d Descriptor) Validate() error {
	switch {
	case strings.TrimSpace(d.SegmentID) == "":
		return errors.NewValidationError("segment_id", d.SegmentID, "cannot be empty")
	case strings.TrimSpace(d.Driver) == "":
		return errors.NewValidationError("driver", d.Driver, fmt.Sprintf("cannot be empty (segment %s)", d.SegmentID))
	case strings.TrimSpace(d.DevelopmentPID) == "":
		return errors.NewValidationError("development_pid", d.DevelopmentPID, fmt.Sprintf("cannot be empty (segment %s)", d.SegmentID))
	case strings.TrimSpace(d.MasterName) == "":
		return errors.NewValidationError("master_name", d.MasterName, fmt.Sprintf("cannot be empty (segment %s)", d.SegmentID))
	}
	return nil
}

// NormalizedDriver returns the lowercased driver used as the token table key.
func (d Descriptor) NormalizedDriver() string {
	return NormalizeDriver(d.Driver)
}

// Validate validates every descriptor and rejects duplicate segment ids.
func Validate(descriptors []Descriptor) error {
	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := seen[d.SegmentID]; dup {
			return errors.NewValidationError("segment_id", d.SegmentID, "duplicate segment id in input")
		}
		seen[d.SegmentID] = struct{}{}
	}
	return nil
}

// NormalizeDriver lowercases a driver name.
func NormalizeDriver(driver string) string {
	return strings.ToLower(strings.TrimSpace(driver))
}

// ProjectDriver maps a segment driver to the platform project driver.
// Only vertica is passed through; everything else runs on Postgres.
func ProjectDriver(driver string) string {
	if NormalizeDriver(driver) == "vertica" {
		return "vertica"
	}
	return "Pg"
}

// MasterName substitutes version for every placeholder in template.
func MasterName(template string, version int) string {
	return strings.ReplaceAll(template, VersionPlaceholder, strconv.Itoa(version))
}
