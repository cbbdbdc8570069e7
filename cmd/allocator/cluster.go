package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/platform/obs"
	"github.com/geosensing/allocator/internal/records"
	"github.com/geosensing/allocator/internal/services"
)

func runCluster(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	var cf commonFlags
	registerCommon(fs, &cf)
	k := fs.Int("k", 0, "number of clusters")
	method := fs.String("method", "kmeans", "clustering method: kmeans or kahip")
	seed := fs.Int64("seed", 0, "random seed for reproducible runs")
	maxIter := fs.Int("max-iter", 0, "k-means iteration cap (0 = default)")
	balanceEdges := fs.Bool("balance-edges", false, "kahip: balance edge cut instead of node count")
	stats := fs.Bool("stats", false, "compute per-cluster size and spanning-tree weight")
	centroidsPath := fs.String("centroids", "", "also write cluster centroids to this CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cf.check(); err != nil {
		return err
	}
	if *k < 1 {
		return &domain.ValidationError{Field: "k", Reason: "must be at least 1"}
	}

	points, attrKeys, err := records.ReadPoints(cf.input)
	if err != nil {
		return err
	}
	if *k > len(points) {
		return &domain.ValidationError{Field: "k",
			Reason: fmt.Sprintf("%d clusters requested for %d points", *k, len(points))}
	}

	provider, cleanup, err := cf.provider()
	if err != nil {
		return err
	}
	defer cleanup()

	info := domain.NewRunInfo("cluster", *method, cf.metric, len(points))
	info.Seed = *seed
	ctx = context.WithValue(ctx, obs.InvocationIDKey, info.InvocationID)

	var partition *domain.Partition
	switch *method {
	case "kmeans":
		km := &services.KMeans{Provider: provider, MaxIter: *maxIter}
		partition, err = km.Partition(ctx, points, *k, *seed)
	case "kahip":
		kp := &services.KahipPartitioner{
			Provider:     provider,
			BinPath:      os.Getenv("KAHIP_BIN"),
			BalanceEdges: *balanceEdges,
		}
		partition, err = kp.Partition(ctx, points, *k, *seed)
	default:
		return &domain.ValidationError{Field: "method", Reason: fmt.Sprintf("unknown method %q", *method)}
	}
	if err != nil {
		return err
	}

	info.Iterations = partition.Iterations
	info.Converged = partition.Converged

	if *stats {
		cs, err := services.ClusterStats(ctx, points, partition, provider)
		if err != nil {
			return err
		}
		info.ClusterStats = cs
	}

	labels := make([]string, len(points))
	for i, l := range partition.Labels {
		labels[i] = strconv.Itoa(l)
	}
	table, err := records.BuildTable(points, attrKeys, records.Column{Name: "cluster", Values: labels})
	if err != nil {
		return err
	}

	info.Elapsed = time.Since(info.StartedAt)
	if err := table.WriteFile(cf.output, cf.format, info); err != nil {
		return err
	}

	if *centroidsPath != "" && partition.Centroids != nil {
		if err := records.WriteCentroids(*centroidsPath, partition.Centroids); err != nil {
			return err
		}
	}

	slog.Info("cluster done",
		"invocation_id", info.InvocationID,
		"method", partition.Method,
		"k", partition.K,
		"points", len(points),
		"converged", partition.Converged,
		"elapsed", info.Elapsed)
	return nil
}
