package main

import (
	"context"
	"flag"
	"log/slog"
	"strconv"
	"time"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/platform/obs"
	"github.com/geosensing/allocator/internal/records"
	"github.com/geosensing/allocator/internal/services"
)

func runAssign(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	var cf commonFlags
	registerCommon(fs, &cf)
	workersPath := fs.String("workers", "", "workers CSV (longitude, latitude, optional id and capacity)")
	byWorker := fs.Bool("by-worker", false, "also write one output file per worker")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cf.check(); err != nil {
		return err
	}
	if *workersPath == "" {
		return &domain.ValidationError{Field: "workers", Reason: "flag is required"}
	}

	points, attrKeys, err := records.ReadPoints(cf.input)
	if err != nil {
		return err
	}
	workers, err := records.ReadWorkers(*workersPath)
	if err != nil {
		return err
	}
	if len(workers) == 0 {
		return &domain.ValidationError{Field: "workers", Reason: "at least one worker is required"}
	}

	provider, cleanup, err := cf.provider()
	if err != nil {
		return err
	}
	defer cleanup()

	info := domain.NewRunInfo("assign", "nearest", cf.metric, len(points))
	ctx = context.WithValue(ctx, obs.InvocationIDKey, info.InvocationID)

	workerPoints := make([]domain.Point, len(workers))
	for i, w := range workers {
		workerPoints[i] = domain.Point{ID: w.ID, Coords: w.Coords}
	}
	m, err := provider.Matrix(ctx, points, workerPoints)
	if err != nil {
		return err
	}

	assignments, err := services.AssignNearest(points, workers, m)
	if err != nil {
		return err
	}

	workerIDs := make([]string, len(points))
	distances := make([]string, len(points))
	ranks := make([]string, len(points))
	for _, a := range assignments {
		workerIDs[a.PointIndex] = workers[a.WorkerIndex].ID
		distances[a.PointIndex] = strconv.FormatFloat(a.Distance, 'f', -1, 64)
		ranks[a.PointIndex] = strconv.Itoa(a.Rank)
	}

	table, err := records.BuildTable(points, attrKeys,
		records.Column{Name: "worker", Values: workerIDs},
		records.Column{Name: "distance", Values: distances},
		records.Column{Name: "rank", Values: ranks})
	if err != nil {
		return err
	}

	info.Extra = map[string]string{"workers": strconv.Itoa(len(workers))}
	info.Elapsed = time.Since(info.StartedAt)
	if err := table.WriteFile(cf.output, cf.format, info); err != nil {
		return err
	}

	if *byWorker {
		if err := records.WriteByWorker(cf.output, cf.format, table, "worker", "distance", workers); err != nil {
			return err
		}
	}

	slog.Info("assign done",
		"invocation_id", info.InvocationID,
		"points", len(points),
		"workers", len(workers),
		"elapsed", info.Elapsed)
	return nil
}
