package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/trailstash/harlens/internal/query"
)

func registerSearchHandlers(api huma.API, svc Service) {
	type searchResultsOutput struct {
		Body struct {
			Results []query.Result `json:"results"`
			Count   int            `json:"count"`
		}
	}
	respond := func(results []query.Result) *searchResultsOutput {
		out := &searchResultsOutput{}
		out.Body.Results = results
		out.Body.Count = len(results)
		return out
	}

	huma.Register(api, huma.Operation{OperationID: "search", Method: http.MethodPost, Path: "/api/v1/{target}/search", Summary: "Multi-criteria entry search", Description: "Criteria are AND-combined. An empty criteria set matches nothing.", Tags: []string{"Search"}},
		func(ctx context.Context, input *struct {
			TargetInput
			Body query.Criteria
		}) (*searchResultsOutput, error) {
			results, err := svc.Search(ctx, input.Target, input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			return respond(results), nil
		})

	huma.Register(api, huma.Operation{OperationID: "search-failures", Method: http.MethodGet, Path: "/api/v1/{target}/search/failures", Summary: "Entries with 4xx/5xx responses", Tags: []string{"Search"}},
		func(ctx context.Context, input *TargetInput) (*searchResultsOutput, error) {
			results, err := svc.Search(ctx, input.Target, query.Criteria{StatusRange: &[2]int{400, 599}})
			if err != nil {
				return nil, mapErr(err)
			}
			return respond(results), nil
		})

	huma.Register(api, huma.Operation{OperationID: "search-slow", Method: http.MethodGet, Path: "/api/v1/{target}/search/slow", Summary: "Entries at or above a duration threshold", Tags: []string{"Search"}},
		func(ctx context.Context, input *struct {
			TargetInput
			ThresholdMS float64 `query:"threshold_ms" default:"1000"`
		}) (*searchResultsOutput, error) {
			threshold := input.ThresholdMS
			if threshold <= 0 {
				threshold = query.DefaultSlowMS
			}
			results, err := svc.Search(ctx, input.Target, query.Criteria{MinDurationMS: &threshold})
			if err != nil {
				return nil, mapErr(err)
			}
			return respond(results), nil
		})

	huma.Register(api, huma.Operation{OperationID: "search-large", Method: http.MethodGet, Path: "/api/v1/{target}/search/large", Summary: "Entries at or above a response size threshold", Tags: []string{"Search"}},
		func(ctx context.Context, input *struct {
			TargetInput
			ThresholdBytes int64 `query:"threshold_bytes" default:"1048576"`
		}) (*searchResultsOutput, error) {
			threshold := input.ThresholdBytes
			if threshold <= 0 {
				threshold = query.DefaultLargeBytes
			}
			results, err := svc.Search(ctx, input.Target, query.Criteria{MinSize: &threshold})
			if err != nil {
				return nil, mapErr(err)
			}
			return respond(results), nil
		})

	huma.Register(api, huma.Operation{OperationID: "search-json", Method: http.MethodGet, Path: "/api/v1/{target}/search/json", Summary: "Entries with JSON responses", Tags: []string{"Search"}},
		func(ctx context.Context, input *TargetInput) (*searchResultsOutput, error) {
			results, err := svc.Search(ctx, input.Target, query.Criteria{ContentType: "json"})
			if err != nil {
				return nil, mapErr(err)
			}
			return respond(results), nil
		})
}
