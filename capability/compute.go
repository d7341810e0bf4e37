package capability

import (
	"context"
	"fmt"

	"google.golang.org/api/compute/v1"
)

// computeFactory constructs Compute Engine capability instances.
type computeFactory struct {
	cred *Credential
}

func (f *computeFactory) Name() string { return "compute" }

func (f *computeFactory) New(ctx context.Context, env Env) (Instance, error) {
	svc, err := compute.NewService(ctx, f.cred.Options()...)
	if err != nil {
		return nil, fmt.Errorf("constructing compute client: %w", err)
	}
	return &computeInstance{svc: svc, project: env.ProjectID}, nil
}

type computeInstance struct {
	svc     *compute.Service
	project string
}

func (c *computeInstance) Methods() []string {
	return []string{"listZones", "listInstances", "startInstance", "stopInstance"}
}

func (c *computeInstance) Call(ctx context.Context, method string, args []any) (any, error) {
	switch method {
	case "listZones":
		return c.listZones(ctx)
	case "listInstances":
		zone, err := stringArg(args, 0, "zone")
		if err != nil {
			return nil, err
		}
		return c.listInstances(ctx, zone)
	case "startInstance":
		return c.instanceOp(ctx, args, "start")
	case "stopInstance":
		return c.instanceOp(ctx, args, "stop")
	default:
		return nil, errNoMethod("compute", method)
	}
}

func (c *computeInstance) listZones(ctx context.Context) (any, error) {
	resp, err := c.svc.Zones.List(c.project).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing zones in %s: %w", c.project, err)
	}
	zones := make([]any, 0, len(resp.Items))
	for _, z := range resp.Items {
		zones = append(zones, map[string]any{
			"name":   z.Name,
			"region": z.Region,
			"status": z.Status,
		})
	}
	return zones, nil
}

func (c *computeInstance) listInstances(ctx context.Context, zone string) (any, error) {
	resp, err := c.svc.Instances.List(c.project, zone).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing instances in %s/%s: %w", c.project, zone, err)
	}
	instances := make([]any, 0, len(resp.Items))
	for _, inst := range resp.Items {
		instances = append(instances, map[string]any{
			"name":        inst.Name,
			"status":      inst.Status,
			"machineType": inst.MachineType,
			"zone":        inst.Zone,
		})
	}
	return instances, nil
}

func (c *computeInstance) instanceOp(ctx context.Context, args []any, op string) (any, error) {
	zone, err := stringArg(args, 0, "zone")
	if err != nil {
		return nil, err
	}
	name, err := stringArg(args, 1, "instance")
	if err != nil {
		return nil, err
	}

	var result *compute.Operation
	switch op {
	case "start":
		result, err = c.svc.Instances.Start(c.project, zone, name).Context(ctx).Do()
	case "stop":
		result, err = c.svc.Instances.Stop(c.project, zone, name).Context(ctx).Do()
	}
	if err != nil {
		return nil, fmt.Errorf("%s instance %s/%s: %w", op, zone, name, err)
	}
	return map[string]any{
		"operation": result.Name,
		"status":    result.Status,
	}, nil
}
