package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/trailstash/harlens/internal/harlog"
	"github.com/trailstash/harlens/internal/livetrack"
)

func registerLiveHandlers(api huma.API, svc Service) {
	type snapshotOutput struct {
		Body livetrack.Snapshot
	}

	huma.Register(api, huma.Operation{OperationID: "live-start", Method: http.MethodPost, Path: "/api/v1/live/start", Summary: "Start a live capture session", Description: "Resets the buffer. Restarting over a running session is allowed.", Tags: []string{"Live"}},
		func(ctx context.Context, input *struct{}) (*snapshotOutput, error) {
			snap, err := svc.StartLive(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "live-stop", Method: http.MethodPost, Path: "/api/v1/live/stop", Summary: "Stop the live capture session", Tags: []string{"Live"}},
		func(ctx context.Context, input *struct{}) (*snapshotOutput, error) {
			snap, err := svc.StopLive(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "live-stats", Method: http.MethodGet, Path: "/api/v1/live/status", Summary: "Live buffer snapshot", Tags: []string{"Live"}},
		func(ctx context.Context, input *struct{}) (*snapshotOutput, error) {
			snap, err := svc.LiveStats(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type liveEntriesOutput struct {
		Body struct {
			Entries []harlog.Entry `json:"entries"`
			Count   int            `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "live-entries", Method: http.MethodGet, Path: "/api/v1/live/entries", Summary: "Live entries after a buffer index", Tags: []string{"Live"}},
		func(ctx context.Context, input *struct {
			After int `query:"after" default:"-1" doc:"Return entries after this buffer index. -1 returns everything."`
		}) (*liveEntriesOutput, error) {
			entries, err := svc.LiveEntries(ctx, input.After)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &liveEntriesOutput{}
			out.Body.Entries = entries
			out.Body.Count = len(entries)
			return out, nil
		})

	type liveDocumentOutput struct {
		Body *harlog.Document
	}
	huma.Register(api, huma.Operation{OperationID: "live-document", Method: http.MethodGet, Path: "/api/v1/live/document", Summary: "Export the live buffer as a capture document", Tags: []string{"Live"}},
		func(ctx context.Context, input *struct{}) (*liveDocumentOutput, error) {
			doc, err := svc.LiveDocument(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &liveDocumentOutput{Body: doc}, nil
		})

	type ingestOutput struct {
		Body struct {
			Accepted int `json:"accepted"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "live-ingest", Method: http.MethodPost, Path: "/api/v1/live/entries", Summary: "Push entries into the live buffer", Tags: []string{"Live"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Entries []harlog.Entry `json:"entries" required:"true"`
			}
		}) (*ingestOutput, error) {
			accepted, err := svc.Ingest(ctx, input.Body.Entries)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &ingestOutput{}
			out.Body.Accepted = accepted
			return out, nil
		})
}
