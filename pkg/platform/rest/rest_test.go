package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/platform"
)

// fakeAPI serves a minimal subset of the platform API.
type fakeAPI struct {
	mu       sync.Mutex
	projects map[string]projectEnvelope
	segments map[string]segmentBody
	order    []string
	synced   []string
	created  []projectEnvelope
	nextPID  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		projects: map[string]projectEnvelope{
			"dev1": {Project: projectBody{
				Meta:    projectMeta{Title: "Development"},
				Content: projectContent{State: platform.StateEnabled, Driver: "Pg"},
			}},
			"old1": {Project: projectBody{
				Meta:    projectMeta{Title: "Old master"},
				Content: projectContent{State: platform.StateDeleted},
			}},
		},
		segments: map[string]segmentBody{
			"s1": {ID: "s1", MasterProject: "/gdc/projects/old1"},
		},
		order: []string{"s1"},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const dp = "/gdc/domains/acme/dataproducts/default"
	p := r.URL.Path
	switch {
	case p == "/gdc/domains/acme" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"domain": map[string]string{"name": "acme"}})
	case p == dp && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"dataProduct": map[string]string{"id": "default"}})
	case p == dp+"/segments" && r.Method == http.MethodGet:
		var list segmentList
		for _, id := range f.order {
			list.Segments.Items = append(list.Segments.Items, segmentEnvelope{Segment: f.segments[id]})
		}
		writeJSON(w, http.StatusOK, list)
	case p == dp+"/segments" && r.Method == http.MethodPost:
		var env segmentEnvelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		f.segments[env.Segment.ID] = env.Segment
		f.order = append(f.order, env.Segment.ID)
		writeJSON(w, http.StatusCreated, env)
	case strings.HasSuffix(p, "/synchronizeClients") && r.Method == http.MethodPost:
		id := strings.TrimSuffix(strings.TrimPrefix(p, dp+"/segments/"), "/synchronizeClients")
		f.synced = append(f.synced, id)
		writeJSON(w, http.StatusCreated, map[string]any{})
	case strings.HasPrefix(p, dp+"/segments/") && r.Method == http.MethodPut:
		var env segmentEnvelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		f.segments[env.Segment.ID] = env.Segment
		w.WriteHeader(http.StatusNoContent)
	case p == "/gdc/projects" && r.Method == http.MethodPost:
		var env projectEnvelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		f.created = append(f.created, env)
		f.nextPID++
		pid := "new" + string(rune('0'+f.nextPID))
		env.Project.Content.AuthorizationToken = ""
		env.Project.Content.State = platform.StateEnabled
		f.projects[pid] = env
		writeJSON(w, http.StatusCreated, uriResponse{URI: "/gdc/projects/" + pid})
	case strings.HasPrefix(p, "/gdc/projects/") && r.Method == http.MethodGet:
		env, ok := f.projects[strings.TrimPrefix(p, "/gdc/projects/")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
			return
		}
		writeJSON(w, http.StatusOK, env)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no route"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return New(server.URL, "token"), api
}

func TestDomainAndSegments(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	d, err := c.Domain(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", d.Name())

	dp, err := d.DataProduct(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "default", dp.ID())

	segs, err := d.Segments(ctx, dp)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "s1", segs[0].ID())

	master, err := segs[0].MasterProject(ctx)
	require.NoError(t, err)
	require.NotNil(t, master)
	assert.Equal(t, "old1", master.PID)
	assert.True(t, master.Deleted())
}

func TestDomainNotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Domain(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	var nf *errors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "domain", nf.Resource)
}

func TestProject(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	p, err := c.Project(ctx, "dev1")
	require.NoError(t, err)
	assert.Equal(t, "Development", p.Title)
	assert.Equal(t, platform.StateEnabled, p.State)
	assert.False(t, p.Deleted())
	assert.Contains(t, string(p.JSON()), `"title":"Development"`)

	_, err = c.Project(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateProject(t *testing.T) {
	c, api := newTestClient(t)

	p, err := c.CreateProject(context.Background(), platform.ProjectSpec{
		Title:       "Master #1",
		AuthToken:   "pg-token",
		Driver:      "Pg",
		Environment: "TESTING",
	})
	require.NoError(t, err)
	assert.Equal(t, "new1", p.PID)
	assert.Equal(t, "Master #1", p.Title)
	assert.Equal(t, "Pg", p.Driver)

	require.Len(t, api.created, 1)
	sent := api.created[0].Project
	assert.Equal(t, "pg-token", sent.Content.AuthorizationToken)
	assert.Equal(t, "TESTING", sent.Content.Environment)
}

func TestSegmentLifecycle(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()

	d, err := c.Domain(ctx, "acme")
	require.NoError(t, err)
	dp, err := d.DataProduct(ctx, "default")
	require.NoError(t, err)

	master := &platform.Project{PID: "new9"}
	seg, err := dp.CreateSegment(ctx, "s2", master)
	require.NoError(t, err)
	require.NoError(t, seg.SynchronizeClients(ctx))
	assert.Equal(t, "/gdc/projects/new9", api.segments["s2"].MasterProject)
	assert.Equal(t, []string{"s2"}, api.synced)

	segs, err := d.Segments(ctx, dp)
	require.NoError(t, err)
	existing, ok := platform.FindSegment(segs, "s1")
	require.True(t, ok)

	existing.SetMasterProject(&platform.Project{PID: "dev1"})
	require.NoError(t, existing.Save(ctx))
	assert.Equal(t, "/gdc/projects/dev1", api.segments["s1"].MasterProject)

	got, err := existing.MasterProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dev1", got.PID)
}

func TestMasterProjectUnset(t *testing.T) {
	s := &segment{id: "s3"}
	p, err := s.MasterProject(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPIDFromURI(t *testing.T) {
	tests := map[string]string{
		"/gdc/projects/abc":  "abc",
		"/gdc/projects/abc/": "abc",
		"":                   "",
		"xyz":                "xyz",
	}
	for uri, want := range tests {
		assert.Equal(t, want, pidFromURI(uri), uri)
	}
}
