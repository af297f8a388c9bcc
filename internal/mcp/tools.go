package mcp

import "github.com/mark3labs/mcp-go/mcp"

var askPlatformHelperTool = mcp.NewTool("ask_platform_helper",
	mcp.WithDescription("Answer a question about operating the data analysis platform (uploading data, creating charts, filtering, exporting). Returns step-by-step instructions in Traditional Chinese."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The user's question, in Chinese or English"),
	),
)

var getIntentTool = mcp.NewTool("get_intent",
	mcp.WithDescription("Get one knowledge base entry: its keywords, instructions and related intents."),
	mcp.WithString("intent",
		mcp.Required(),
		mcp.Description("Intent identifier"),
		mcp.Enum("data_upload", "chart_creation", "data_filtering", "export_results"),
	),
)

var listQuickActionsTool = mcp.NewTool("list_quick_actions",
	mcp.WithDescription("List the shortcut questions offered next to the chat input."),
)
