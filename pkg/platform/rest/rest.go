// Package rest implements the platform contracts over the platform's REST API.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/agentstation/segmaster/internal/transport"
	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/platform"
)

const projectsPath = "/gdc/projects"

// Client implements platform.Client and platform.DevelopmentClient.
type Client struct {
	t *transport.Client
}

var (
	_ platform.Client            = (*Client)(nil)
	_ platform.DevelopmentClient = (*Client)(nil)
)

// New creates a client for the platform at baseURL.
func New(baseURL, token string, opts ...transport.Option) *Client {
	return &Client{t: transport.New(baseURL, token, opts...)}
}

// NewWithTransport wraps an existing transport client.
func NewWithTransport(t *transport.Client) *Client {
	return &Client{t: t}
}

type projectMeta struct {
	Title string `json:"title"`
}

type projectContent struct {
	AuthorizationToken string `json:"authorizationToken,omitempty"`
	Driver             string `json:"driver,omitempty"`
	Environment        string `json:"environment,omitempty"`
	State              string `json:"state,omitempty"`
}

type projectLinks struct {
	Self string `json:"self,omitempty"`
}

type projectBody struct {
	Meta    projectMeta    `json:"meta"`
	Content projectContent `json:"content"`
	Links   *projectLinks  `json:"links,omitempty"`
}

type projectEnvelope struct {
	Project projectBody `json:"project"`
}

type uriResponse struct {
	URI string `json:"uri"`
}

// Domain implements platform.Client.
func (c *Client) Domain(ctx context.Context, name string) (platform.Domain, error) {
	if err := c.t.Get(ctx, domainPath(name), nil); err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("domain", name)
		}
		return nil, errors.WrapResource("fetch", "domain", name, err)
	}
	return &domain{c: c, name: name}, nil
}

// CreateProject implements platform.Client.
func (c *Client) CreateProject(ctx context.Context, spec platform.ProjectSpec) (*platform.Project, error) {
	body := projectEnvelope{Project: projectBody{
		Meta: projectMeta{Title: spec.Title},
		Content: projectContent{
			AuthorizationToken: spec.AuthToken,
			Driver:             spec.Driver,
			Environment:        spec.Environment,
		},
	}}

	var created uriResponse
	if err := c.t.Post(ctx, projectsPath, body, &created); err != nil {
		return nil, errors.WrapResource("create", "project", spec.Title, err)
	}
	pid := pidFromURI(created.URI)
	if pid == "" {
		return nil, errors.NewResourceError("create", "project", spec.Title, errors.New("response carried no project uri"))
	}
	return c.Project(ctx, pid)
}

// Project implements platform.DevelopmentClient.
func (c *Client) Project(ctx context.Context, pid string) (*platform.Project, error) {
	var raw json.RawMessage
	if err := c.t.Get(ctx, projectURI(pid), &raw); err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("project", pid)
		}
		return nil, errors.WrapResource("fetch", "project", pid, err)
	}

	var env projectEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.WrapParse("json", "project "+pid, err)
	}
	return &platform.Project{
		PID:         pid,
		Title:       env.Project.Meta.Title,
		Driver:      env.Project.Content.Driver,
		Environment: env.Project.Content.Environment,
		State:       env.Project.Content.State,
		Raw:         raw,
	}, nil
}

type domain struct {
	c    *Client
	name string
}

func (d *domain) Name() string { return d.name }

func (d *domain) DataProduct(ctx context.Context, id string) (platform.DataProduct, error) {
	p := dataProductPath(d.name, id)
	if err := d.c.t.Get(ctx, p, nil); err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("data product", id)
		}
		return nil, errors.WrapResource("fetch", "data product", id, err)
	}
	return &dataProduct{c: d.c, domain: d.name, id: id}, nil
}

type segmentBody struct {
	ID            string `json:"id"`
	MasterProject string `json:"masterProject,omitempty"`
}

type segmentEnvelope struct {
	Segment segmentBody `json:"segment"`
}

type segmentList struct {
	Segments struct {
		Items []segmentEnvelope `json:"items"`
	} `json:"segments"`
}

func (d *domain) Segments(ctx context.Context, dp platform.DataProduct) ([]platform.Segment, error) {
	var list segmentList
	if err := d.c.t.Get(ctx, segmentsPath(d.name, dp.ID()), &list); err != nil {
		return nil, errors.WrapResource("list", "segments", d.name+"/"+dp.ID(), err)
	}

	out := make([]platform.Segment, 0, len(list.Segments.Items))
	for _, item := range list.Segments.Items {
		out = append(out, &segment{
			c:           d.c,
			domain:      d.name,
			dataProduct: dp.ID(),
			id:          item.Segment.ID,
			masterURI:   item.Segment.MasterProject,
		})
	}
	return out, nil
}

type dataProduct struct {
	c      *Client
	domain string
	id     string
}

func (dp *dataProduct) ID() string { return dp.id }

func (dp *dataProduct) CreateSegment(ctx context.Context, segmentID string, master *platform.Project) (platform.Segment, error) {
	body := segmentEnvelope{Segment: segmentBody{ID: segmentID, MasterProject: projectURI(master.PID)}}
	if err := dp.c.t.Post(ctx, segmentsPath(dp.domain, dp.id), body, nil); err != nil {
		return nil, errors.WrapResource("create", "segment", segmentID, err)
	}
	return &segment{
		c:           dp.c,
		domain:      dp.domain,
		dataProduct: dp.id,
		id:          segmentID,
		masterURI:   body.Segment.MasterProject,
	}, nil
}

type segment struct {
	c           *Client
	domain      string
	dataProduct string
	id          string
	masterURI   string
}

func (s *segment) ID() string { return s.id }

func (s *segment) MasterProject(ctx context.Context) (*platform.Project, error) {
	pid := pidFromURI(s.masterURI)
	if pid == "" {
		return nil, nil
	}
	return s.c.Project(ctx, pid)
}

func (s *segment) SetMasterProject(project *platform.Project) {
	if project == nil {
		s.masterURI = ""
		return
	}
	s.masterURI = projectURI(project.PID)
}

func (s *segment) Save(ctx context.Context) error {
	body := segmentEnvelope{Segment: segmentBody{ID: s.id, MasterProject: s.masterURI}}
	if err := s.c.t.Put(ctx, s.path(), body, nil); err != nil {
		return errors.WrapResource("update", "segment", s.id, err)
	}
	return nil
}

func (s *segment) SynchronizeClients(ctx context.Context) error {
	if err := s.c.t.Do(ctx, http.MethodPost, s.path()+"/synchronizeClients", struct{}{}, nil); err != nil {
		return errors.WrapResource("synchronize", "segment clients", s.id, err)
	}
	return nil
}

func (s *segment) path() string {
	return segmentsPath(s.domain, s.dataProduct) + "/" + url.PathEscape(s.id)
}

func domainPath(name string) string {
	return "/gdc/domains/" + url.PathEscape(name)
}

func dataProductPath(domain, id string) string {
	return domainPath(domain) + "/dataproducts/" + url.PathEscape(id)
}

func segmentsPath(domain, dataProduct string) string {
	return dataProductPath(domain, dataProduct) + "/segments"
}

func projectURI(pid string) string {
	return projectsPath + "/" + url.PathEscape(pid)
}

// pidFromURI extracts the pid from a project uri such as /gdc/projects/abc.
func pidFromURI(uri string) string {
	uri = strings.TrimRight(uri, "/")
	if uri == "" {
		return ""
	}
	pid, err := url.PathUnescape(path.Base(uri))
	if err != nil {
		return path.Base(uri)
	}
	return pid
}
