package databricks

import (
	"context"
	"fmt"

	"github.com/causeway-mcp/causeway/internal/core/port"
	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/compute"
)

// Compute manages all-purpose cluster lifecycle. Start, terminate, and
// restart only initiate the transition; the SDK's waiters are discarded so
// the tools stay fire-and-forget like the rest of the surface.
type Compute struct {
	w *databricks.WorkspaceClient
}

func NewCompute(w *databricks.WorkspaceClient) *Compute {
	return &Compute{w: w}
}

func (c *Compute) ListClusters(ctx context.Context) ([]port.Cluster, error) {
	details, err := c.w.Clusters.ListAll(ctx, compute.ListClustersRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing clusters: %w", err)
	}

	clusters := make([]port.Cluster, 0, len(details))
	for _, d := range details {
		clusters = append(clusters, toCluster(&d, false))
	}
	return clusters, nil
}

func (c *Compute) GetCluster(ctx context.Context, clusterID string) (*port.Cluster, error) {
	d, err := c.w.Clusters.Get(ctx, compute.GetClusterRequest{ClusterId: clusterID})
	if err != nil {
		return nil, fmt.Errorf("getting cluster %s: %w", clusterID, err)
	}

	cl := toCluster(d, true)
	return &cl, nil
}

func (c *Compute) CreateCluster(ctx context.Context, spec port.ClusterSpec) (string, error) {
	req := compute.CreateCluster{
		ClusterName:  spec.Name,
		SparkVersion: spec.SparkVersion,
		NodeTypeId:   spec.NodeTypeID,
	}
	if spec.NumWorkers > 0 {
		req.NumWorkers = spec.NumWorkers
	} else if spec.AutoscaleMinWorkers > 0 && spec.AutoscaleMaxWorkers > 0 {
		req.Autoscale = &compute.AutoScale{
			MinWorkers: spec.AutoscaleMinWorkers,
			MaxWorkers: spec.AutoscaleMaxWorkers,
		}
	}
	if spec.AutoTerminationMinutes > 0 {
		req.AutoterminationMinutes = spec.AutoTerminationMinutes
	}

	wait, err := c.w.Clusters.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("creating cluster %s: %w", spec.Name, err)
	}
	return wait.Response.ClusterId, nil
}

func (c *Compute) StartCluster(ctx context.Context, clusterID string) error {
	if _, err := c.w.Clusters.Start(ctx, compute.StartCluster{ClusterId: clusterID}); err != nil {
		return fmt.Errorf("starting cluster %s: %w", clusterID, err)
	}
	return nil
}

func (c *Compute) TerminateCluster(ctx context.Context, clusterID string) error {
	if _, err := c.w.Clusters.Delete(ctx, compute.DeleteCluster{ClusterId: clusterID}); err != nil {
		return fmt.Errorf("terminating cluster %s: %w", clusterID, err)
	}
	return nil
}

func (c *Compute) RestartCluster(ctx context.Context, clusterID string) error {
	if _, err := c.w.Clusters.Restart(ctx, compute.RestartCluster{ClusterId: clusterID}); err != nil {
		return fmt.Errorf("restarting cluster %s: %w", clusterID, err)
	}
	return nil
}

func toCluster(d *compute.ClusterDetails, withNodes bool) port.Cluster {
	cl := port.Cluster{
		ID:           d.ClusterId,
		Name:         d.ClusterName,
		State:        string(d.State),
		NodeTypeID:   d.NodeTypeId,
		NumWorkers:   d.NumWorkers,
		SparkVersion: d.SparkVersion,
	}
	if !withNodes {
		return cl
	}
	if d.Driver != nil {
		cl.Driver = toNode(d.Driver)
	}
	for i := range d.Executors {
		cl.Executors = append(cl.Executors, *toNode(&d.Executors[i]))
	}
	return cl
}

func toNode(n *compute.SparkNode) *port.ClusterNode {
	return &port.ClusterNode{
		NodeID:    n.NodeId,
		PrivateIP: n.PrivateIp,
		PublicDNS: n.PublicDns,
	}
}
