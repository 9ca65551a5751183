package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/trailstash/harlens/internal/analyzer"
	"github.com/trailstash/harlens/internal/harlog"
)

func registerDocumentHandlers(api huma.API, svc Service) {
	type documentSummaryOutput struct {
		Body analyzer.DocumentSummary
	}
	huma.Register(api, huma.Operation{OperationID: "load-document", Method: http.MethodPost, Path: "/api/v1/documents", Summary: "Parse and load a capture document", Tags: []string{"Documents"}},
		func(ctx context.Context, input *struct {
			Body struct {
				HAR string `json:"har" required:"true" doc:"Capture document text (HAR 1.2)."`
			}
		}) (*documentSummaryOutput, error) {
			summary, err := svc.LoadDocument(ctx, input.Body.HAR)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &documentSummaryOutput{}
			out.Body = summary
			return out, nil
		})

	type documentListOutput struct {
		Body struct {
			Documents []analyzer.DocumentSummary `json:"documents"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-documents", Method: http.MethodGet, Path: "/api/v1/documents", Summary: "List loaded documents", Tags: []string{"Documents"}},
		func(ctx context.Context, input *struct{}) (*documentListOutput, error) {
			docs, err := svc.ListDocuments(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &documentListOutput{}
			out.Body.Documents = docs
			return out, nil
		})

	type documentIDInput struct {
		DocumentID string `path:"document_id"`
	}
	type documentOutput struct {
		Body *harlog.Document
	}
	huma.Register(api, huma.Operation{OperationID: "get-document", Method: http.MethodGet, Path: "/api/v1/documents/{document_id}", Summary: "Get a loaded document", Tags: []string{"Documents"}},
		func(ctx context.Context, input *documentIDInput) (*documentOutput, error) {
			doc, err := svc.GetDocument(ctx, input.DocumentID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &documentOutput{Body: doc}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "delete-document", Method: http.MethodDelete, Path: "/api/v1/documents/{document_id}", Summary: "Unload a document", Tags: []string{"Documents"}},
		func(ctx context.Context, input *documentIDInput) (*struct{}, error) {
			if err := svc.DeleteDocument(ctx, input.DocumentID); err != nil {
				return nil, mapErr(err)
			}
			return &struct{}{}, nil
		})
}
