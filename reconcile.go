package segmaster

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/platform"
	"github.com/agentstation/segmaster/pkg/segments"
)

// pass holds the state shared by every segment of one reconciliation.
type pass struct {
	domain      platform.Domain
	dataProduct platform.DataProduct
	existing    []platform.Segment
}

// Reconcile runs one reconciliation pass over descriptors.
func (s *segmaster) Reconcile(ctx context.Context, descriptors []segments.Descriptor) (*segments.Output, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Reject malformed input before touching the platform
	if err := segments.Validate(descriptors); err != nil {
		return nil, err
	}

	// Step 2: Resolve domain and data product
	p, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("segments", len(descriptors)).
		Int("existing", len(p.existing)).
		Msg("Reconciling segment masters")

	// Step 3: Reconcile each segment in input order
	reconciled := make([]segments.Reconciled, 0, len(descriptors))
	for _, d := range descriptors {
		r, err := s.reconcile(ctx, p, d)
		if err != nil {
			return nil, err
		}
		reconciled = append(reconciled, r)
		s.hooks.trigger(r)
	}

	// Step 4: Build results and directives
	out := segments.NewOutput(reconciled)
	counts := out.Counts()
	s.logger.Info().
		Int("created", counts[segments.StatusCreated]).
		Int("modified", counts[segments.StatusModified]).
		Int("untouched", counts[segments.StatusUntouched]).
		Msg("Segment masters reconciled")

	return out, nil
}

// open resolves the domain and data product and snapshots the domain's
// segments once for the whole pass.
func (s *segmaster) open(ctx context.Context) (*pass, error) {
	name := s.config.domainName()
	domain, err := s.config.platform.Domain(ctx, name)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("domain", name)
		}
		return nil, errors.WrapResource("fetch", "domain", name, err)
	}
	if domain == nil {
		return nil, errors.NewNotFoundError("domain", name)
	}

	dp, err := domain.DataProduct(ctx, s.config.dataProduct)
	if err != nil {
		return nil, errors.WrapResource("fetch", "data product", s.config.dataProduct, err)
	}

	existing, err := domain.Segments(ctx, dp)
	if err != nil {
		return nil, errors.WrapResource("list", "segments", name, err)
	}

	return &pass{domain: domain, dataProduct: dp, existing: existing}, nil
}

// reconcile brings one segment to a live master and records the outcome.
func (s *segmaster) reconcile(ctx context.Context, p *pass, d segments.Descriptor) (segments.Reconciled, error) {
	logger := s.logger.With().Str("segment", d.SegmentID).Logger()
	driver := d.NormalizedDriver()

	token, err := s.config.tokens.Lookup(driver)
	if err != nil {
		return segments.Reconciled{}, err
	}

	latest, err := s.resolver.Resolve(ctx, s.key(d.SegmentID))
	if err != nil {
		return segments.Reconciled{}, err
	}
	version := latest + 1
	name := segments.MasterName(d.MasterName, version)

	if err := s.checkDevelopment(ctx, d.DevelopmentPID); err != nil {
		return segments.Reconciled{}, err
	}

	segment, exists := platform.FindSegment(p.existing, d.SegmentID)

	// A new master is provisioned on every pass, even when the segment keeps its current one.
	logger.Info().Str("name", name).Int("version", version).Msg("Creating master project")
	master, err := s.config.platform.CreateProject(ctx, platform.ProjectSpec{
		Title:       name,
		AuthToken:   token,
		Driver:      segments.ProjectDriver(driver),
		Environment: s.config.environment,
	})
	if err != nil {
		return segments.Reconciled{}, errors.WrapResource("create", "master project", name, err)
	}
	logger.Debug().RawJSON("project", master.JSON()).Msg("Master project created")

	var (
		isNew  bool
		status segments.Status
	)
	if !exists {
		logger.Info().Str("master", master.PID).Msg("Creating segment")
		segment, err = p.dataProduct.CreateSegment(ctx, d.SegmentID, master)
		if err != nil {
			return segments.Reconciled{}, errors.WrapResource("create", "segment", d.SegmentID, err)
		}
		if err := segment.SynchronizeClients(ctx); err != nil {
			return segments.Reconciled{}, errors.WrapResource("synchronize", "segment clients", d.SegmentID, err)
		}
		isNew, status = true, segments.StatusCreated
	} else {
		isNew, status = false, segments.StatusUntouched
	}

	current := s.currentMaster(ctx, logger, segment)
	if current == nil || current.Deleted() {
		logger.Info().Str("master", master.PID).Msg("Segment has no live master, linking new master project")
		segment.SetMasterProject(master)
		if err := segment.Save(ctx); err != nil {
			return segments.Reconciled{}, errors.WrapResource("update", "segment", d.SegmentID, err)
		}
		isNew, status = true, segments.StatusModified
	}

	return segments.Reconciled{
		Descriptor:    d,
		Name:          name,
		IsNew:         isNew,
		Status:        status,
		DataProductID: p.dataProduct.ID(),
		MasterPID:     master.PID,
		Version:       version,
		Timestamp:     s.config.clock().UTC(),
	}, nil
}

// checkDevelopment fails when the development project does not exist.
func (s *segmaster) checkDevelopment(ctx context.Context, pid string) error {
	project, err := s.config.development.Project(ctx, pid)
	switch {
	case err != nil && errors.IsNotFound(err):
		return errors.NewNotFoundError("development project", pid)
	case err != nil:
		return errors.WrapResource("fetch", "development project", pid, err)
	case project == nil:
		return errors.NewNotFoundError("development project", pid)
	}
	return nil
}

// currentMaster returns the segment's master project. Lookup failures are
// logged and reported as no master.
func (s *segmaster) currentMaster(ctx context.Context, logger zerolog.Logger, segment platform.Segment) *platform.Project {
	master, err := segment.MasterProject(ctx)
	if err != nil {
		lookupErr := errors.NewTransientLookupError("master project of segment", segment.ID(), err)
		logger.Warn().Err(lookupErr).Msg("Unable to get segment master project")
		return nil
	}
	return master
}
