package port

import "context"

// ClusterNode identifies a single node of a running cluster.
type ClusterNode struct {
	NodeID    string `json:"node_id,omitempty"`
	PrivateIP string `json:"private_ip,omitempty"`
	PublicDNS string `json:"public_dns,omitempty"`
}

// Cluster describes an all-purpose compute cluster.
type Cluster struct {
	ID           string        `json:"cluster_id"`
	Name         string        `json:"cluster_name"`
	State        string        `json:"state"`
	NodeTypeID   string        `json:"node_type_id,omitempty"`
	NumWorkers   int           `json:"num_workers"`
	SparkVersion string        `json:"spark_version,omitempty"`
	Driver       *ClusterNode  `json:"driver,omitempty"`
	Executors    []ClusterNode `json:"executors,omitempty"`
}

// ClusterSpec describes a cluster to create. NumWorkers fixes the size; when
// it is zero and both autoscale bounds are set, the cluster autoscales
// between them instead.
type ClusterSpec struct {
	Name                   string
	SparkVersion           string
	NodeTypeID             string
	NumWorkers             int
	AutoscaleMinWorkers    int
	AutoscaleMaxWorkers    int
	AutoTerminationMinutes int
}

// Compute manages cluster lifecycle. Create/Start/Terminate/Restart only
// initiate the transition; callers observe progress via GetCluster.
type Compute interface {
	ListClusters(ctx context.Context) ([]Cluster, error)
	GetCluster(ctx context.Context, clusterID string) (*Cluster, error)
	// CreateCluster provisions a new cluster and returns its id.
	CreateCluster(ctx context.Context, spec ClusterSpec) (string, error)
	StartCluster(ctx context.Context, clusterID string) error
	TerminateCluster(ctx context.Context, clusterID string) error
	RestartCluster(ctx context.Context, clusterID string) error
}
