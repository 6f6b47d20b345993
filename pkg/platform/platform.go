// Package platform defines the contracts a reconciliation pass consumes from
// the multi-tenant platform: domains, data products, segments, and projects.
//
// Implementations report absent resources with errors matching
// errors.ErrNotFound. The rest subpackage talks to the platform API; the
// memory subpackage is an in-process platform for tests.
package platform

import (
	"context"
	"encoding/json"
	"strings"
)

// Project states reported by the platform.
const (
	StateEnabled   = "ENABLED"
	StatePreparing = "PREPARING"
	StateDeleted   = "DELETED"
)

// Project is a platform project record.
type Project struct {
	PID         string          `json:"pid"`
	Title       string          `json:"title"`
	Driver      string          `json:"driver,omitempty"`
	Environment string          `json:"environment,omitempty"`
	State       string          `json:"state,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// Deleted reports whether the platform marked the project deleted.
func (p *Project) Deleted() bool {
	return p != nil && strings.EqualFold(p.State, StateDeleted)
}

// JSON returns the platform's representation of the project, or a
// marshaled copy of the record when none was captured.
func (p *Project) JSON() json.RawMessage {
	if len(p.Raw) > 0 {
		return p.Raw
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return data
}

// ProjectSpec describes a project to create.
type ProjectSpec struct {
	Title       string
	AuthToken   string
	Driver      string
	Environment string
}

// Client is the production platform client.
type Client interface {
	// Domain returns the named domain.
	Domain(ctx context.Context, name string) (Domain, error)
	// CreateProject provisions a new project.
	CreateProject(ctx context.Context, spec ProjectSpec) (*Project, error)
}

// DevelopmentClient reads projects from the development platform.
type DevelopmentClient interface {
	// Project returns the project with the given pid.
	Project(ctx context.Context, pid string) (*Project, error)
}

// Domain is a tenant isolation boundary containing segments.
type Domain interface {
	Name() string
	// DataProduct returns the data product with the given id.
	DataProduct(ctx context.Context, id string) (DataProduct, error)
	// Segments lists the segments of a data product.
	Segments(ctx context.Context, dataProduct DataProduct) ([]Segment, error)
}

// DataProduct groups segments under one release scope.
type DataProduct interface {
	ID() string
	// CreateSegment creates a segment with master as its master project.
	CreateSegment(ctx context.Context, segmentID string, master *Project) (Segment, error)
}

// Segment is the platform side record of a segment.
type Segment interface {
	ID() string
	// MasterProject fetches the segment's current master project.
	MasterProject(ctx context.Context) (*Project, error)
	// SetMasterProject re-points the segment locally; Save persists it.
	SetMasterProject(project *Project)
	// Save persists the segment.
	Save(ctx context.Context) error
	// SynchronizeClients triggers client synchronization for the segment.
	SynchronizeClients(ctx context.Context) error
}

// FindSegment returns the first segment whose id equals segmentID.
func FindSegment(list []Segment, segmentID string) (Segment, bool) {
	for _, s := range list {
		if s.ID() == segmentID {
			return s, true
		}
	}
	return nil, false
}
