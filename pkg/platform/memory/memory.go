// Package memory provides an in-process platform implementing both
// platform.Client and platform.DevelopmentClient. It keeps projects, domains,
// data products and segments in maps and records the calls made against it.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/platform"
)

// Stats counts the mutating calls made against the platform.
type Stats struct {
	ProjectsCreated  int
	SegmentsCreated  int
	SegmentsSaved    int
	Synchronizations int
}

// Platform is a thread-safe in-memory platform.
type Platform struct {
	mu         sync.Mutex
	seq        int
	projects   map[string]platform.Project
	domains    map[string]*domainState
	masterErrs map[string]error
	createErr  error
	stats      Stats
}

type domainState struct {
	name     string
	products map[string]*productState
}

type productState struct {
	id       string
	segments []*segmentState
}

type segmentState struct {
	id        string
	masterPID string
}

// New creates an empty platform.
func New() *Platform {
	return &Platform{
		projects:   make(map[string]platform.Project),
		domains:    make(map[string]*domainState),
		masterErrs: make(map[string]error),
	}
}

// AddDomain registers a domain with the given data products.
func (p *Platform) AddDomain(name string, dataProducts ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, ok := p.domains[name]
	if !ok {
		d = &domainState{name: name, products: make(map[string]*productState)}
		p.domains[name] = d
	}
	for _, id := range dataProducts {
		if _, ok := d.products[id]; !ok {
			d.products[id] = &productState{id: id}
		}
	}
}

// AddProject stores a project, assigning a pid when it has none.
func (p *Platform) AddProject(project platform.Project) platform.Project {
	p.mu.Lock()
	defer p.mu.Unlock()

	if project.PID == "" {
		project.PID = p.nextPID()
	}
	if project.State == "" {
		project.State = platform.StateEnabled
	}
	p.projects[project.PID] = project
	return project
}

// AddSegment registers a segment pointing at masterPID.
func (p *Platform) AddSegment(domain, dataProduct, segmentID, masterPID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dp, err := p.product(domain, dataProduct)
	if err != nil {
		return err
	}
	dp.segments = append(dp.segments, &segmentState{id: segmentID, masterPID: masterPID})
	return nil
}

// DeleteProject marks a project deleted, as the platform does.
func (p *Platform) DeleteProject(pid string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if project, ok := p.projects[pid]; ok {
		project.State = platform.StateDeleted
		p.projects[pid] = project
	}
}

// PurgeProject removes a project entirely.
func (p *Platform) PurgeProject(pid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.projects, pid)
}

// FailMasterLookup makes MasterProject on segmentID return err.
func (p *Platform) FailMasterLookup(segmentID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.masterErrs[segmentID] = err
}

// FailProjectCreation makes CreateProject return err.
func (p *Platform) FailProjectCreation(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createErr = err
}

// Stats returns a snapshot of the call counters.
func (p *Platform) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// SegmentMaster returns the persisted master pid of a segment.
func (p *Platform) SegmentMaster(domain, dataProduct, segmentID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dp, err := p.product(domain, dataProduct)
	if err != nil {
		return "", false
	}
	for _, s := range dp.segments {
		if s.id == segmentID {
			return s.masterPID, true
		}
	}
	return "", false
}

// Domain implements platform.Client.
func (p *Platform) Domain(_ context.Context, name string) (platform.Domain, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.domains[name]; !ok {
		return nil, errors.NewNotFoundError("domain", name)
	}
	return &domain{p: p, name: name}, nil
}

// CreateProject implements platform.Client.
func (p *Platform) CreateProject(_ context.Context, spec platform.ProjectSpec) (*platform.Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.createErr != nil {
		return nil, p.createErr
	}
	if spec.AuthToken == "" {
		return nil, errors.NewAPIError("memory", 400, "authorization token required")
	}

	project := platform.Project{
		PID:         p.nextPID(),
		Title:       spec.Title,
		Driver:      spec.Driver,
		Environment: spec.Environment,
		State:       platform.StateEnabled,
	}
	p.projects[project.PID] = project
	p.stats.ProjectsCreated++
	return &project, nil
}

// Project implements platform.DevelopmentClient.
func (p *Platform) Project(_ context.Context, pid string) (*platform.Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.project(pid)
}

func (p *Platform) project(pid string) (*platform.Project, error) {
	project, ok := p.projects[pid]
	if !ok {
		return nil, errors.NewNotFoundError("project", pid)
	}
	return &project, nil
}

func (p *Platform) product(domainName, id string) (*productState, error) {
	d, ok := p.domains[domainName]
	if !ok {
		return nil, errors.NewNotFoundError("domain", domainName)
	}
	dp, ok := d.products[id]
	if !ok {
		return nil, errors.NewNotFoundError("data product", id)
	}
	return dp, nil
}

func (p *Platform) nextPID() string {
	p.seq++
	return fmt.Sprintf("p%04d", p.seq)
}

type domain struct {
	p    *Platform
	name string
}

func (d *domain) Name() string { return d.name }

func (d *domain) DataProduct(_ context.Context, id string) (platform.DataProduct, error) {
	d.p.mu.Lock()
	defer d.p.mu.Unlock()

	if _, err := d.p.product(d.name, id); err != nil {
		return nil, err
	}
	return &dataProduct{p: d.p, domain: d.name, id: id}, nil
}

func (d *domain) Segments(_ context.Context, dp platform.DataProduct) ([]platform.Segment, error) {
	d.p.mu.Lock()
	defer d.p.mu.Unlock()

	state, err := d.p.product(d.name, dp.ID())
	if err != nil {
		return nil, err
	}
	list := make([]platform.Segment, 0, len(state.segments))
	for _, s := range state.segments {
		list = append(list, &segment{p: d.p, domain: d.name, dataProduct: dp.ID(), id: s.id, masterPID: s.masterPID})
	}
	return list, nil
}

type dataProduct struct {
	p      *Platform
	domain string
	id     string
}

func (dp *dataProduct) ID() string { return dp.id }

func (dp *dataProduct) CreateSegment(_ context.Context, segmentID string, master *platform.Project) (platform.Segment, error) {
	dp.p.mu.Lock()
	defer dp.p.mu.Unlock()

	state, err := dp.p.product(dp.domain, dp.id)
	if err != nil {
		return nil, err
	}
	for _, s := range state.segments {
		if s.id == segmentID {
			return nil, errors.NewAPIError("memory", 409, fmt.Sprintf("segment %s already exists", segmentID))
		}
	}
	state.segments = append(state.segments, &segmentState{id: segmentID, masterPID: master.PID})
	dp.p.stats.SegmentsCreated++
	return &segment{p: dp.p, domain: dp.domain, dataProduct: dp.id, id: segmentID, masterPID: master.PID}, nil
}

type segment struct {
	p           *Platform
	domain      string
	dataProduct string
	id          string
	masterPID   string
}

func (s *segment) ID() string { return s.id }

func (s *segment) MasterProject(_ context.Context) (*platform.Project, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()

	if err := s.p.masterErrs[s.id]; err != nil {
		return nil, err
	}
	if s.masterPID == "" {
		return nil, nil
	}
	return s.p.project(s.masterPID)
}

func (s *segment) SetMasterProject(project *platform.Project) {
	if project == nil {
		s.masterPID = ""
		return
	}
	s.masterPID = project.PID
}

func (s *segment) Save(_ context.Context) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()

	state, err := s.p.product(s.domain, s.dataProduct)
	if err != nil {
		return err
	}
	for _, st := range state.segments {
		if st.id == s.id {
			st.masterPID = s.masterPID
			s.p.stats.SegmentsSaved++
			return nil
		}
	}
	return errors.NewNotFoundError("segment", s.id)
}

func (s *segment) SynchronizeClients(_ context.Context) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.p.stats.Synchronizations++
	return nil
}
