package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/bands/pkg/app"
)

func registerTools(srv *server.MCPServer, svc *Service) {
	registerListCollectionsTool(srv, svc)
	registerListEntriesTool(srv, svc)
	registerGetEntryTool(srv, svc)
	registerGetPlanTool(srv, svc)
	registerCreateEntryTool(srv, svc)
	registerRenameGroupTool(srv, svc)
	registerDeleteGroupTool(srv, svc)
	registerMoveGroupTool(srv, svc)
	registerSetGroupEnabledTool(srv, svc)
	registerSetGroupCollapsedTool(srv, svc)
	registerUpdateMembershipTool(srv, svc)
}

func collectionArg() mcp.ToolOption {
	return mcp.WithString("collection",
		mcp.Required(),
		mcp.Description("Collection (book) name."),
	)
}

func groupArg(desc string) mcp.ToolOption {
	return mcp.WithString("group",
		mcp.Required(),
		mcp.Description(desc),
	)
}

func registerListCollectionsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_collections",
		mcp.WithDescription("List collections with entry counts and their groups in display order."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summaries, err := svc.ListCollections(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"collections": summaries,
			"count":       len(summaries),
		})
	})
}

func registerListEntriesTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_entries",
		mcp.WithDescription("List the entries of a collection with their decoded group and title."),
		collectionArg(),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, err := request.RequireString("collection")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		entries, err := svc.ListEntries(ctx, collection)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"collection": collection,
			"entries":    entries,
			"count":      len(entries),
		})
	})
}

func registerGetEntryTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_entry",
		mcp.WithDescription("Fetch a single entry by identifier."),
		collectionArg(),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entry identifier to fetch."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, err := request.RequireString("collection")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		dto, err := svc.EntryByID(ctx, collection, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerGetPlanTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_plan",
		mcp.WithDescription("Compute the grouped render plan of a collection."),
		collectionArg(),
		mcp.WithString("sort",
			mcp.Description("Sort: none, as-is, or field:asc|desc with field one of comment, order, uid, depth, probability, content."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, err := request.RequireString("collection")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, err := svc.Plan(ctx, collection, request.GetString("sort", "none"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(p)
	})
}

func registerCreateEntryTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"create_entry",
		mcp.WithDescription("Append an entry to a collection, optionally inside a group."),
		collectionArg(),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Entry title."),
		),
		mcp.WithString("group",
			mcp.Description("Group to place the entry in."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Collection string `json:"collection"`
			Title      string `json:"title"`
			Group      string `json:"group"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		dto, err := svc.AddEntry(ctx, args.Collection, args.Group, args.Title)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerRenameGroupTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"rename_group",
		mcp.WithDescription("Rename a group, rewriting every member and carrying over its preferences."),
		collectionArg(),
		groupArg("Group to rename."),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("New group name."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Collection string `json:"collection"`
			Group      string `json:"group"`
			To         string `json:"to"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		name, err := svc.App.RenameTo(ctx, args.Collection, args.Group, args.To)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"from": args.Group, "to": name})
	})
}

func registerDeleteGroupTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"delete_group",
		mcp.WithDescription("Delete a group, either ungrouping its members or deleting them."),
		collectionArg(),
		groupArg("Group to delete."),
		mcp.WithString("mode",
			mcp.Description("ungroup keeps the entries, delete removes them."),
			mcp.Enum(string(app.DeleteUngroup), string(app.DeleteEntries)),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Collection string `json:"collection"`
			Group      string `json:"group"`
			Mode       string `json:"mode"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		mode := app.DeleteMode(args.Mode)
		if mode == "" {
			mode = app.DeleteUngroup
		}

		n, err := svc.App.DeleteWith(ctx, args.Collection, args.Group, mode)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"group": args.Group, "mode": mode, "entries": n})
	})
}

func registerMoveGroupTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"move_group",
		mcp.WithDescription("Move a group up (negative delta) or down in the display order."),
		collectionArg(),
		groupArg("Group to move."),
		mcp.WithNumber("delta",
			mcp.Required(),
			mcp.Description("Positions to move, -1 for up and 1 for down."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Collection string `json:"collection"`
			Group      string `json:"group"`
			Delta      int    `json:"delta"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		moved, err := svc.App.MoveGroup(ctx, args.Collection, args.Group, args.Delta)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"group": args.Group, "moved": moved})
	})
}

func registerSetGroupEnabledTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"set_group_enabled",
		mcp.WithDescription("Enable or disable every entry of a group."),
		collectionArg(),
		groupArg("Group to change."),
		mcp.WithBoolean("enabled",
			mcp.Required(),
			mcp.Description("Whether the group should be enabled."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Collection string `json:"collection"`
			Group      string `json:"group"`
			Enabled    bool   `json:"enabled"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		if err := svc.App.SetGroupEnabled(ctx, args.Collection, args.Group, args.Enabled); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"group": args.Group, "enabled": args.Enabled})
	})
}

func registerSetGroupCollapsedTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"set_group_collapsed",
		mcp.WithDescription("Collapse or expand a group in the panel."),
		collectionArg(),
		groupArg("Group to change."),
		mcp.WithBoolean("collapsed",
			mcp.Required(),
			mcp.Description("Whether the group should be collapsed."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Collection string `json:"collection"`
			Group      string `json:"group"`
			Collapsed  bool   `json:"collapsed"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		svc.App.SetCollapsed(ctx, args.Collection, args.Group, args.Collapsed)
		return toJSONResult(map[string]any{"group": args.Group, "collapsed": args.Collapsed})
	})
}

func registerUpdateMembershipTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"update_membership",
		mcp.WithDescription("Add entries to a group and remove entries from it. Creates the group when needed."),
		collectionArg(),
		groupArg("Target group."),
		mcp.WithArray("add",
			mcp.Description("Entry ids to move into the group."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("remove",
			mcp.Description("Entry ids of members to ungroup."),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Collection string   `json:"collection"`
			Group      string   `json:"group"`
			Add        []string `json:"add"`
			Remove     []string `json:"remove"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		n, err := svc.App.ApplyMembership(ctx, args.Collection, args.Group, args.Add, args.Remove)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"group": args.Group, "changed": n})
	})
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
