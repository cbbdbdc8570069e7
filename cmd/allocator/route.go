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
	"github.com/geosensing/allocator/internal/ports"
	"github.com/geosensing/allocator/internal/records"
	"github.com/geosensing/allocator/internal/services"
)

func runRoute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	var cf commonFlags
	registerCommon(fs, &cf)
	method := fs.String("method", "approx", "routing method: approx or osrm-trip")
	start := fs.String("start", "", "id (or index) of the fixed starting point; empty lets the solver pick")
	closed := fs.Bool("closed", false, "return to the starting point")
	timeLimit := fs.Duration("time-limit", 0, "refinement time budget (0 = no limit)")
	matching := fs.Bool("matching", false, "approx: match odd vertices instead of doubling edges")
	noRefine := fs.Bool("no-refine", false, "approx: skip the 2-opt refinement pass")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cf.check(); err != nil {
		return err
	}

	points, attrKeys, err := records.ReadPoints(cf.input)
	if err != nil {
		return err
	}

	provider, cleanup, err := cf.provider()
	if err != nil {
		return err
	}
	defer cleanup()

	info := domain.NewRunInfo("route", *method, cf.metric, len(points))
	ctx = context.WithValue(ctx, obs.InvocationIDKey, info.InvocationID)

	m, err := provider.Matrix(ctx, points, points)
	if err != nil {
		return err
	}

	var solver ports.TourSolver
	switch *method {
	case "approx":
		solver = &services.ApproxSolver{Matching: *matching, Refine: !*noRefine}
	case "osrm-trip":
		solver = services.NewOSRMTripSolver(os.Getenv("OSRM_BASE_URL"))
	default:
		return &domain.ValidationError{Field: "method", Reason: fmt.Sprintf("unknown method %q", *method)}
	}

	opts := ports.TourOptions{TimeLimit: *timeLimit, Closed: *closed}
	if *start != "" {
		idx, err := resolveStart(points, *start)
		if err != nil {
			return err
		}
		opts.Start = &idx
	}

	route, err := solver.Solve(ctx, points, m, opts)
	if err != nil {
		return err
	}

	// Invert the visiting order into a per-point position column so the
	// output stays row-aligned with the input.
	position := make([]string, len(points))
	for pos, idx := range route.Order {
		position[idx] = strconv.Itoa(pos)
	}
	table, err := records.BuildTable(points, attrKeys, records.Column{Name: "route_order", Values: position})
	if err != nil {
		return err
	}

	info.Extra = map[string]string{
		"total_distance": strconv.FormatFloat(route.TotalDistance, 'f', -1, 64),
		"total_duration": strconv.FormatFloat(route.TotalDuration, 'f', -1, 64),
		"closed":         strconv.FormatBool(route.Closed),
	}
	info.Elapsed = time.Since(info.StartedAt)
	if err := table.WriteFile(cf.output, cf.format, info); err != nil {
		return err
	}

	slog.Info("route done",
		"invocation_id", info.InvocationID,
		"method", *method,
		"points", len(points),
		"total_distance", route.TotalDistance,
		"elapsed", info.Elapsed)
	return nil
}

// resolveStart matches the flag value against point ids first, then falls
// back to treating it as a zero-based index.
func resolveStart(points []domain.Point, start string) (int, error) {
	for i, p := range points {
		if p.ID == start {
			return i, nil
		}
	}
	if idx, err := strconv.Atoi(start); err == nil && idx >= 0 && idx < len(points) {
		return idx, nil
	}
	return 0, &domain.ValidationError{Field: "start",
		Reason: fmt.Sprintf("%q matches no point id or index", start)}
}
