package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerResources(srv *server.MCPServer, svc *Service) {
	registerCollectionsResource(srv, svc)
	registerCollectionTemplate(srv, svc)
	registerPlanTemplate(srv, svc)
}

func registerCollectionsResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"bands://collections",
		"Collections",
		mcp.WithResourceDescription("All collections with entry counts and groups."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		summaries, err := svc.ListCollections(ctx)
		if err != nil {
			return nil, err
		}

		payload := map[string]any{
			"collections": summaries,
			"count":       len(summaries),
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

func registerCollectionTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"bands://collections/{name}",
		"Collection Entries",
		mcp.WithTemplateDescription("Entries that belong to a collection."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		name := templateArg(request, "name")
		if name == "" {
			return nil, fmt.Errorf("collection name is required")
		}

		entries, err := svc.ListEntries(ctx, name)
		if err != nil {
			return nil, err
		}

		payload := map[string]any{
			"collection": name,
			"count":      len(entries),
			"entries":    entries,
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

func registerPlanTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"bands://collections/{name}/plan",
		"Collection Plan",
		mcp.WithTemplateDescription("Groups of a collection in display order with their members."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		name := templateArg(request, "name")
		if name == "" {
			return nil, fmt.Errorf("collection name is required")
		}

		p, err := svc.Plan(ctx, name, "none")
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, p)
	})
}

// templateArg reads a URI template variable. The server passes matched
// variables as strings or single-element slices.
func templateArg(request mcp.ReadResourceRequest, key string) string {
	switch v := request.Params.Arguments[key].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func encodeResourceJSON(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
