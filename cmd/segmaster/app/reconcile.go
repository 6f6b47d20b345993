package app

import (
	"context"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/agentstation/segmaster/internal/cmd/output"
	"github.com/agentstation/segmaster/pkg/constants"
	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/segments"
)

// reconcileFlags holds the reconcile command flags.
type reconcileFlags struct {
	segments     string
	record       bool
	organization string
	domain       string
	dataProduct  string
	environment  string
}

// segmentsFile is the wrapped form of a segments file.
type segmentsFile struct {
	Segments []segments.Descriptor `yaml:"segments" json:"segments"`
}

// NewReconcileCommand creates the reconcile command.
func (a *App) NewReconcileCommand() *cobra.Command {
	flags := &reconcileFlags{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over a segments file",
		Long: `Reconcile reads segment descriptors from a YAML or JSON file, runs one
reconciliation pass against the configured domain, and prints the results
and synchronization directives.

The file holds either a list of descriptors or a mapping with a
"segments" list:

  segments:
    - segment_id: sales
      driver: pg
      development_pid: abc123
      master_name: "Sales master #{version}"`,
		Example: `  segmaster reconcile --segments segments.yaml
  segmaster reconcile --segments segments.yaml --record -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReconcile(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.segments, "segments", "s", "", "segments file (YAML or JSON)")
	cmd.Flags().BoolVar(&flags.record, "record", false, "publish the new versions to the version store")
	cmd.Flags().StringVar(&flags.organization, "organization", "", "organization (overrides domain)")
	cmd.Flags().StringVar(&flags.domain, "domain", "", "domain to reconcile")
	cmd.Flags().StringVar(&flags.dataProduct, "data-product", "", "data product to reconcile")
	cmd.Flags().StringVar(&flags.environment, "environment", "", "environment of new master projects")
	_ = cmd.MarkFlagRequired("segments")

	return cmd
}

func (a *App) runReconcile(cmd *cobra.Command, flags *reconcileFlags) error {
	format, err := output.ParseFormat(a.flags.Format)
	if err != nil {
		return errors.NewValidationError("format", a.flags.Format, err.Error())
	}

	a.applyReconcileFlags(flags)

	descriptors, err := readSegments(a.fs, flags.segments)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), constants.PassTimeout)
	defer cancel()

	sm, err := a.Segmaster(ctx)
	if err != nil {
		return err
	}

	out, err := sm.Reconcile(ctx, descriptors)
	if err != nil {
		return err
	}

	if flags.record {
		if err := sm.Record(ctx, out); err != nil {
			return err
		}
	}

	return output.FormatOutput(cmd.OutOrStdout(), out, output.DetectFormat(string(format)))
}

func (a *App) applyReconcileFlags(flags *reconcileFlags) {
	if flags.organization != "" {
		a.config.Organization = flags.organization
	}
	if flags.domain != "" {
		a.config.Domain = flags.domain
	}
	if flags.dataProduct != "" {
		a.config.DataProduct = flags.dataProduct
	}
	if flags.environment != "" {
		a.config.Environment = flags.environment
	}
}

// readSegments decodes a list of descriptors, bare or under a "segments" key.
func readSegments(fs afero.Fs, path string) ([]segments.Descriptor, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var shape any
	if err := yaml.Unmarshal(data, &shape); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	if _, isList := shape.([]any); isList {
		var list []segments.Descriptor
		if err := yaml.Unmarshal(data, &list); err != nil {
			return nil, errors.WrapParse("yaml", path, err)
		}
		return list, nil
	}

	var wrapped segmentsFile
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return wrapped.Segments, nil
}
