package capability

import (
	"context"
	"fmt"

	"google.golang.org/api/cloudresourcemanager/v1"
)

// projectsFactory constructs Cloud Resource Manager capability instances.
// The same instances back the select-project and list-projects tools, so
// the sandbox and the thin handlers share one project surface.
type projectsFactory struct {
	cred *Credential
}

func (f *projectsFactory) Name() string { return "projects" }

func (f *projectsFactory) New(ctx context.Context, _ Env) (Instance, error) {
	svc, err := cloudresourcemanager.NewService(ctx, f.cred.Options()...)
	if err != nil {
		return nil, fmt.Errorf("constructing resource manager client: %w", err)
	}
	return &projectsInstance{svc: svc}, nil
}

type projectsInstance struct {
	svc *cloudresourcemanager.Service
}

func (p *projectsInstance) Methods() []string {
	return []string{"list", "get"}
}

func (p *projectsInstance) Call(ctx context.Context, method string, args []any) (any, error) {
	switch method {
	case "list":
		return p.list(ctx)
	case "get":
		projectID, err := stringArg(args, 0, "projectId")
		if err != nil {
			return nil, err
		}
		return p.get(ctx, projectID)
	default:
		return nil, errNoMethod("projects", method)
	}
}

func (p *projectsInstance) list(ctx context.Context) (any, error) {
	resp, err := p.svc.Projects.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	projects := make([]any, 0, len(resp.Projects))
	for _, proj := range resp.Projects {
		projects = append(projects, map[string]any{
			"projectId": proj.ProjectId,
			"name":      proj.Name,
			"state":     proj.LifecycleState,
		})
	}
	return projects, nil
}

func (p *projectsInstance) get(ctx context.Context, projectID string) (any, error) {
	proj, err := p.svc.Projects.Get(projectID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", projectID, err)
	}
	return map[string]any{
		"projectId": proj.ProjectId,
		"name":      proj.Name,
		"state":     proj.LifecycleState,
	}, nil
}
