// Package segmaster creates and repairs segment master projects.
//
// A reconciliation pass walks a list of segment descriptors in order. For each
// one it resolves the next release version, provisions a new master project,
// and makes sure the segment exists at the platform and points at a live
// master. The pass returns one result and one synchronization directive per
// segment; the directives tell the propagation stage to copy each development
// project into its new master.
//
// Example usage:
//
//	store, err := versions.Select(nil, "", afero.NewOsFs(), "/releases")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sm, err := segmaster.New(
//	    segmaster.WithPlatform(client),
//	    segmaster.WithDevelopment(devClient),
//	    segmaster.WithVersionStore(store),
//	    segmaster.WithTokens(tokens.Table{"pg": token}),
//	    segmaster.WithDomain("acme"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sm.OnSegmentModified(func(s segments.Reconciled) {
//	    log.Printf("segment %s repaired, new master %s", s.Descriptor.SegmentID, s.MasterPID)
//	})
//
//	out, err := sm.Reconcile(ctx, descriptors)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range out.Params.Synchronize {
//	    fmt.Printf("%s: %s -> %s\n", d.Segment, d.From, d.To[0].PID)
//	}
package segmaster

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/logging"
	"github.com/agentstation/segmaster/pkg/segments"
	"github.com/agentstation/segmaster/pkg/versions"
)

// Compile-time interface check to ensure proper implementation.
var _ Segmaster = (*segmaster)(nil)

// Segmaster runs reconciliation passes against one domain and data product.
type Segmaster interface {
	// Reconcile runs one pass over descriptors. Any fatal error aborts the
	// pass and no output is returned.
	Reconcile(ctx context.Context, descriptors []segments.Descriptor) (*segments.Output, error)

	// Record publishes the version records of a pass to the version store.
	Record(ctx context.Context, out *segments.Output) error

	// Domain returns the domain being reconciled.
	Domain() string

	// DataProduct returns the data product being reconciled.
	DataProduct() string

	// OnSegmentCreated registers a callback for created segments
	OnSegmentCreated(SegmentCreatedHook)

	// OnSegmentModified registers a callback for modified segments
	OnSegmentModified(SegmentModifiedHook)

	// OnSegmentUntouched registers a callback for untouched segments
	OnSegmentUntouched(SegmentUntouchedHook)
}

type segmaster struct {
	*hooks
	config   *config
	resolver *versions.Resolver
	logger   zerolog.Logger
}

// New creates a Segmaster with the given options
func New(opts ...Option) (Segmaster, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := logging.Component(cfg.logger, "segmaster").
		With().
		Str("domain", cfg.domainName()).
		Str("data_product", cfg.dataProduct).
		Logger()

	return &segmaster{
		hooks:    newHooks(),
		config:   cfg,
		resolver: versions.NewResolver(cfg.store, cfg.logger),
		logger:   logger,
	}, nil
}

func (s *segmaster) Domain() string {
	return s.config.domainName()
}

func (s *segmaster) DataProduct() string {
	return s.config.dataProduct
}

// Record publishes one version record per reconciled segment.
func (s *segmaster) Record(ctx context.Context, out *segments.Output) error {
	if out == nil {
		return nil
	}
	for _, record := range out.VersionRecords() {
		key := s.key(record.SegmentID)
		if err := s.config.store.Record(ctx, key, record); err != nil {
			return errors.WrapResource("record", "version", record.SegmentID, err)
		}
		s.logger.Info().
			Str("segment", record.SegmentID).
			Int("version", record.Version).
			Str("master", record.MasterProjectID).
			Msg("Recorded release")
	}
	return nil
}

func (s *segmaster) key(segmentID string) versions.Key {
	return versions.Key{
		Domain:      s.config.domainName(),
		DataProduct: s.config.dataProduct,
		SegmentID:   segmentID,
	}
}
