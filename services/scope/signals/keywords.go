// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package signals

import "strings"

// Fixed case-sensitive keyword lists driving the behavioral flags.
// Superset policy: lists must stay broader than real indicators.
// Matching is plain substring over the whole file text.
var (
	inputKeywords = []string{
		"input(", "prompt(", "ask_user", "get_user_input", "questionary",
		"click.prompt", "typer.prompt",
	}

	llmKeywords = []string{
		"llm", "LLM", "openai", "anthropic", "completion", "chat.completions",
		"generate_content", "invoke_model",
	}

	fileReadKeywords = []string{
		"open(", "read_text", "read_bytes", "json.load", "yaml.safe_load",
		"csv.reader", "pd.read_",
	}

	fileWriteKeywords = []string{
		"write(", "write_text", "write_bytes", "json.dump", "yaml.dump",
		"to_csv", "savefig", "output_file",
	}

	conditionalKeywords = []string{"if ", "elif ", "match "}

	loopKeywords = []string{"for ", "while "}

	infiniteLoopKeywords = []string{"while True", "while 1"}

	crewExecKeywords = []string{".kickoff(", "kickoff_async", "kickoff_for_each"}

	parallelKeywords = []string{
		"asyncio.gather", "asyncio.wait", "and_(", "or_(",
		"ThreadPoolExecutor", "ProcessPoolExecutor", "concurrent.futures",
	}

	humanLoopKeywords = []string{
		"human_input", "human_feedback", "approval", "approve", "review",
		"confirm", "input(",
	}

	databaseKeywords = []string{
		"sqlite", "postgres", "psycopg", "mysql", "mongodb", "pymongo",
		"sqlalchemy", "redis", "weaviate", "chroma", "pinecone",
	}

	stateEvolutionKeywords = []string{
		"self.state.", "state.append", "state.update", "self.state[",
	}

	apiKeywords = []string{
		"requests.", "httpx", "aiohttp", "urllib", "api_key", "API_KEY",
		"webhook", "graphql",
	}
)

// fileFormatMarkers maps a substring to the format it indicates.
var fileFormatMarkers = map[string]string{
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".csv":  "csv",
	".md":   "markdown",
	".txt":  "text",
	".pdf":  "pdf",
	".html": "html",
}

// serviceMarker infers an external service plus its conventional
// credential env var from a text substring. Order matters: first match
// per service name wins.
type serviceMarker struct {
	Marker  string
	Service string
	EnvVar  string
}

var serviceMarkers = []serviceMarker{
	{"openai", "OpenAI", "OPENAI_API_KEY"},
	{"OpenAI", "OpenAI", "OPENAI_API_KEY"},
	{"anthropic", "Anthropic", "ANTHROPIC_API_KEY"},
	{"SerperDevTool", "Serper", "SERPER_API_KEY"},
	{"serper", "Serper", "SERPER_API_KEY"},
	{"slack", "Slack", "SLACK_TOKEN"},
	{"smtp", "SMTP", "SMTP_PASSWORD"},
	{"sendgrid", "SendGrid", "SENDGRID_API_KEY"},
	{"boto3", "AWS", "AWS_ACCESS_KEY_ID"},
	{"s3://", "AWS", "AWS_ACCESS_KEY_ID"},
	{"github", "GitHub", "GITHUB_TOKEN"},
	{"notion", "Notion", "NOTION_TOKEN"},
	{"firecrawl", "Firecrawl", "FIRECRAWL_API_KEY"},
	{"tavily", "Tavily", "TAVILY_API_KEY"},
	{"groq", "Groq", "GROQ_API_KEY"},
	{"gemini", "Google Gemini", "GEMINI_API_KEY"},
	{"ollama", "Ollama", ""},
}

// containsAny reports whether text contains any keyword from the list.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
