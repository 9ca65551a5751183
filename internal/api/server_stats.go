package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/trailstash/harlens/internal/stats"
)

func registerStatsHandlers(api huma.API, svc Service) {
	type statusReportOutput struct {
		Body struct {
			Groups []stats.StatusGroup `json:"groups"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "stats-status", Method: http.MethodGet, Path: "/api/v1/{target}/stats/status", Summary: "Group entries by status code", Tags: []string{"Stats"}},
		func(ctx context.Context, input *TargetInput) (*statusReportOutput, error) {
			groups, err := svc.StatusReport(ctx, input.Target)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &statusReportOutput{}
			out.Body.Groups = groups
			return out, nil
		})

	type rangeReportOutput struct {
		Body struct {
			Buckets []stats.RangeGroup `json:"buckets"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "stats-sizes", Method: http.MethodGet, Path: "/api/v1/{target}/stats/sizes", Summary: "Bucket entries by response size", Tags: []string{"Stats"}},
		func(ctx context.Context, input *TargetInput) (*rangeReportOutput, error) {
			buckets, err := svc.SizeReport(ctx, input.Target)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &rangeReportOutput{}
			out.Body.Buckets = buckets
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "stats-durations", Method: http.MethodGet, Path: "/api/v1/{target}/stats/durations", Summary: "Bucket entries by duration", Tags: []string{"Stats"}},
		func(ctx context.Context, input *TargetInput) (*rangeReportOutput, error) {
			buckets, err := svc.DurationReport(ctx, input.Target)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &rangeReportOutput{}
			out.Body.Buckets = buckets
			return out, nil
		})

	type methodReportOutput struct {
		Body struct {
			Groups []stats.MethodGroup `json:"groups"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "stats-methods", Method: http.MethodGet, Path: "/api/v1/{target}/stats/methods", Summary: "Group entries by HTTP method", Tags: []string{"Stats"}},
		func(ctx context.Context, input *TargetInput) (*methodReportOutput, error) {
			groups, err := svc.MethodReport(ctx, input.Target)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &methodReportOutput{}
			out.Body.Groups = groups
			return out, nil
		})

	type percentilesOutput struct {
		Body struct {
			Percentiles []stats.Percentile `json:"percentiles"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "stats-percentiles", Method: http.MethodGet, Path: "/api/v1/{target}/stats/percentiles", Summary: "Duration percentiles (nearest-rank)", Tags: []string{"Stats"}},
		func(ctx context.Context, input *struct {
			TargetInput
			P string `query:"p" doc:"Comma-separated percentiles, e.g. 50,90,99. Defaults to 50,75,90,95,99."`
		}) (*percentilesOutput, error) {
			ps, err := svc.Percentiles(ctx, input.Target, parsePercentiles(input.P))
			if err != nil {
				return nil, mapErr(err)
			}
			out := &percentilesOutput{}
			out.Body.Percentiles = ps
			return out, nil
		})

	type slowestOutput struct {
		Body struct {
			Entries []stats.SlowEntry `json:"entries"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "stats-slowest", Method: http.MethodGet, Path: "/api/v1/{target}/stats/slowest", Summary: "Top-N slowest entries", Tags: []string{"Stats"}},
		func(ctx context.Context, input *struct {
			TargetInput
			N int `query:"n" default:"10"`
		}) (*slowestOutput, error) {
			entries, err := svc.Slowest(ctx, input.Target, input.N)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &slowestOutput{}
			out.Body.Entries = entries
			return out, nil
		})

	type largestOutput struct {
		Body struct {
			Entries []stats.LargeEntry `json:"entries"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "stats-largest", Method: http.MethodGet, Path: "/api/v1/{target}/stats/largest", Summary: "Top-N largest entries", Tags: []string{"Stats"}},
		func(ctx context.Context, input *struct {
			TargetInput
			N int `query:"n" default:"10"`
		}) (*largestOutput, error) {
			entries, err := svc.Largest(ctx, input.Target, input.N)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &largestOutput{}
			out.Body.Entries = entries
			return out, nil
		})

	type bandwidthOutput struct {
		Body stats.Bandwidth
	}
	huma.Register(api, huma.Operation{OperationID: "stats-bandwidth", Method: http.MethodGet, Path: "/api/v1/{target}/stats/bandwidth", Summary: "Total transferred bytes", Tags: []string{"Stats"}},
		func(ctx context.Context, input *TargetInput) (*bandwidthOutput, error) {
			b, err := svc.Bandwidth(ctx, input.Target)
			if err != nil {
				return nil, mapErr(err)
			}
			return &bandwidthOutput{Body: b}, nil
		})

	type timeRangeOutput struct {
		Body stats.TimeRange
	}
	huma.Register(api, huma.Operation{OperationID: "stats-timerange", Method: http.MethodGet, Path: "/api/v1/{target}/stats/timerange", Summary: "Observed capture window", Tags: []string{"Stats"}},
		func(ctx context.Context, input *TargetInput) (*timeRangeOutput, error) {
			tr, err := svc.TimeRange(ctx, input.Target)
			if err != nil {
				return nil, mapErr(err)
			}
			return &timeRangeOutput{Body: tr}, nil
		})

	type authFailuresOutput struct {
		Body struct {
			Failures []stats.AuthFailure `json:"failures"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "stats-auth-failures", Method: http.MethodGet, Path: "/api/v1/{target}/stats/auth-failures", Summary: "401/403 entries with credential context", Tags: []string{"Stats"}},
		func(ctx context.Context, input *TargetInput) (*authFailuresOutput, error) {
			failures, err := svc.AuthFailures(ctx, input.Target)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &authFailuresOutput{}
			out.Body.Failures = failures
			return out, nil
		})
}

// parsePercentiles turns "50,90,99" into floats, skipping blank or
// unparsable tokens. An empty result selects the defaults downstream.
func parsePercentiles(raw string) []float64 {
	if raw == "" {
		return nil
	}
	var out []float64
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}
