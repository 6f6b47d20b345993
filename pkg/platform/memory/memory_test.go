package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/platform"
	"github.com/agentstation/segmaster/pkg/platform/memory"
)

func TestPlatformSegments(t *testing.T) {
	ctx := context.Background()
	p := memory.New()
	p.AddDomain("acme", "default")

	master := p.AddProject(platform.Project{Title: "master"})
	require.NoError(t, p.AddSegment("acme", "default", "s1", master.PID))

	d, err := p.Domain(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", d.Name())

	dp, err := d.DataProduct(ctx, "default")
	require.NoError(t, err)

	list, err := d.Segments(ctx, dp)
	require.NoError(t, err)
	require.Len(t, list, 1)

	seg, ok := platform.FindSegment(list, "s1")
	require.True(t, ok)

	got, err := seg.MasterProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, master.PID, got.PID)
	assert.False(t, got.Deleted())

	p.DeleteProject(master.PID)
	got, err = seg.MasterProject(ctx)
	require.NoError(t, err)
	assert.True(t, got.Deleted())
}

func TestPlatformCreateAndSave(t *testing.T) {
	ctx := context.Background()
	p := memory.New()
	p.AddDomain("acme", "default")

	d, err := p.Domain(ctx, "acme")
	require.NoError(t, err)
	dp, err := d.DataProduct(ctx, "default")
	require.NoError(t, err)

	project, err := p.CreateProject(ctx, platform.ProjectSpec{Title: "m_1", AuthToken: "tok", Driver: "Pg"})
	require.NoError(t, err)
	assert.Equal(t, platform.StateEnabled, project.State)

	seg, err := dp.CreateSegment(ctx, "s1", project)
	require.NoError(t, err)
	require.NoError(t, seg.SynchronizeClients(ctx))

	_, err = dp.CreateSegment(ctx, "s1", project)
	require.Error(t, err)

	replacement, err := p.CreateProject(ctx, platform.ProjectSpec{Title: "m_2", AuthToken: "tok"})
	require.NoError(t, err)
	seg.SetMasterProject(replacement)
	require.NoError(t, seg.Save(ctx))

	pid, ok := p.SegmentMaster("acme", "default", "s1")
	require.True(t, ok)
	assert.Equal(t, replacement.PID, pid)

	assert.Equal(t, memory.Stats{ProjectsCreated: 2, SegmentsCreated: 1, SegmentsSaved: 1, Synchronizations: 1}, p.Stats())
}

func TestPlatformErrors(t *testing.T) {
	ctx := context.Background()
	p := memory.New()

	_, err := p.Domain(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))

	_, err = p.Project(ctx, "nope")
	assert.True(t, errors.IsNotFound(err))

	_, err = p.CreateProject(ctx, platform.ProjectSpec{Title: "x"})
	assert.Error(t, err)

	p.AddDomain("acme")
	d, err := p.Domain(ctx, "acme")
	require.NoError(t, err)
	_, err = d.DataProduct(ctx, "default")
	assert.True(t, errors.IsNotFound(err))

	assert.Error(t, p.AddSegment("acme", "default", "s1", ""))
}
