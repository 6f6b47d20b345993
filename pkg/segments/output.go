package segments

import "time"

// Reconciled is the outcome of reconciling one descriptor. It is built once
// per segment and never mutated afterwards.
type Reconciled struct {
	Descriptor    Descriptor
	Name          string
	IsNew         bool
	Status        Status
	DataProductID string
	MasterPID     string
	Version       int
	Timestamp     time.Time
}

// Result builds the output result record.
func (r Reconciled) Result() Result {
	return Result{
		SegmentID:            r.Descriptor.SegmentID,
		Name:                 r.Name,
		DevelopmentPID:       r.Descriptor.DevelopmentPID,
		MasterPID:            r.MasterPID,
		ADSOutputStageURI:    r.Descriptor.ADSOutputStageURI,
		ADSOutputStagePrefix: r.Descriptor.ADSOutputStagePrefix,
		Driver:               r.Descriptor.NormalizedDriver(),
		Status:               r.Status,
	}
}

// Directive builds the development to master propagation instruction.
func (r Reconciled) Directive() Directive {
	return Directive{
		Segment:              r.Descriptor.SegmentID,
		From:                 r.Descriptor.DevelopmentPID,
		To:                   []Target{{PID: r.MasterPID}},
		ADSOutputStageURI:    r.Descriptor.ADSOutputStageURI,
		ADSOutputStagePrefix: r.Descriptor.ADSOutputStagePrefix,
	}
}

// VersionRecord builds the release record announcing this pass's master.
func (r Reconciled) VersionRecord() VersionRecord {
	return VersionRecord{
		SegmentID:       r.Descriptor.SegmentID,
		MasterProjectID: r.MasterPID,
		Version:         r.Version,
		Timestamp:       r.Timestamp,
	}
}

// Result is one entry of the output results list.
type Result struct {
	SegmentID            string `json:"segment_id" yaml:"segment_id"`
	Name                 string `json:"name" yaml:"name"`
	DevelopmentPID       string `json:"development_pid" yaml:"development_pid"`
	MasterPID            string `json:"master_pid" yaml:"master_pid"`
	ADSOutputStageURI    string `json:"ads_output_stage_uri" yaml:"ads_output_stage_uri"`
	ADSOutputStagePrefix string `json:"ads_output_stage_prefix" yaml:"ads_output_stage_prefix"`
	Driver               string `json:"driver" yaml:"driver"`
	Status               Status `json:"status" yaml:"status"`
}

// Target names a project a directive propagates into.
type Target struct {
	PID string `json:"pid" yaml:"pid"`
}

// Directive instructs the propagation stage to copy a development project into masters.
type Directive struct {
	Segment              string   `json:"segment" yaml:"segment"`
	From                 string   `json:"from" yaml:"from"`
	To                   []Target `json:"to" yaml:"to"`
	ADSOutputStageURI    string   `json:"ads_output_stage_uri" yaml:"ads_output_stage_uri"`
	ADSOutputStagePrefix string   `json:"ads_output_stage_prefix" yaml:"ads_output_stage_prefix"`
}

// Params carries the parameters handed to the next stage.
type Params struct {
	Synchronize []Directive `json:"synchronize" yaml:"synchronize"`
}

// Output is the result of a reconciliation pass.
type Output struct {
	Results []Result `json:"results" yaml:"results"`
	Params  Params   `json:"params" yaml:"params"`

	// Segments holds the full per-segment outcome in input order.
	Segments []Reconciled `json:"-" yaml:"-"`
}

// NewOutput assembles the output from per-segment outcomes, preserving order.
func NewOutput(reconciled []Reconciled) *Output {
	out := &Output{
		Results:  make([]Result, 0, len(reconciled)),
		Params:   Params{Synchronize: make([]Directive, 0, len(reconciled))},
		Segments: reconciled,
	}
	for _, r := range reconciled {
		out.Results = append(out.Results, r.Result())
		out.Params.Synchronize = append(out.Params.Synchronize, r.Directive())
	}
	return out
}

// Segment returns the outcome for segmentID.
func (o *Output) Segment(segmentID string) (Reconciled, bool) {
	for _, r := range o.Segments {
		if r.Descriptor.SegmentID == segmentID {
			return r, true
		}
	}
	return Reconciled{}, false
}

// VersionRecords returns one release record per reconciled segment.
func (o *Output) VersionRecords() []VersionRecord {
	records := make([]VersionRecord, 0, len(o.Segments))
	for _, r := range o.Segments {
		records = append(records, r.VersionRecord())
	}
	return records
}

// Counts tallies segments per status.
func (o *Output) Counts() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, r := range o.Segments {
		counts[r.Status]++
	}
	return counts
}

// VersionRecord is the latest released master of a segment.
type VersionRecord struct {
	SegmentID       string    `json:"segment_id" yaml:"segment_id"`
	MasterProjectID string    `json:"master_project_id,omitempty" yaml:"master_project_id,omitempty"`
	Version         int       `json:"version" yaml:"version"`
	Timestamp       time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}
