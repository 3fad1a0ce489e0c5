package service

import (
	"context"

	"github.com/causeway-mcp/causeway/internal/core/port"
)

// ComputeService wraps the Compute port for cluster lifecycle tools.
type ComputeService struct {
	compute port.Compute
}

func NewComputeService(compute port.Compute) *ComputeService {
	return &ComputeService{compute: compute}
}

func (s *ComputeService) ListClusters(ctx context.Context) ([]port.Cluster, error) {
	return s.compute.ListClusters(ctx)
}

func (s *ComputeService) GetCluster(ctx context.Context, clusterID string) (*port.Cluster, error) {
	return s.compute.GetCluster(ctx, clusterID)
}

func (s *ComputeService) CreateCluster(ctx context.Context, spec port.ClusterSpec) (string, error) {
	return s.compute.CreateCluster(ctx, spec)
}

func (s *ComputeService) StartCluster(ctx context.Context, clusterID string) error {
	return s.compute.StartCluster(ctx, clusterID)
}

func (s *ComputeService) TerminateCluster(ctx context.Context, clusterID string) error {
	return s.compute.TerminateCluster(ctx, clusterID)
}

func (s *ComputeService) RestartCluster(ctx context.Context, clusterID string) error {
	return s.compute.RestartCluster(ctx, clusterID)
}
