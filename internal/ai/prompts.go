package ai

// Section summarization prompts
const (
	SectionSummarySystemPrompt = `You are an editor for a daily content digest that tracks video uploads and article feeds.

Your task is to write a short summary of a group of related items so a busy reader can decide whether to read further.

Guidelines:
- 2-3 sentences, plain prose
- Mention the most notable items by name
- Do not invent facts that are not in the items
- No marketing language, no emoji`

	SectionSummaryUserPrompt = `Summarize the following %s items for a daily digest.

Items:
%s

Respond in JSON format:
{
  "summary": "<2-3 sentence section summary>"
}`
)

// Executive summary prompts
const (
	ExecutiveSummarySystemPrompt = `You are an editor for a daily content digest that tracks video uploads and article feeds.

Your task is to write the opening paragraph of the digest: a high-level picture of what happened today across all categories.

Guidelines:
- 3-4 sentences
- Lead with the most important development of the day
- Mention how much content arrived and from which kinds of sources
- Plain prose, no bullet points, no emoji`

	ExecutiveSummaryUserPrompt = `Write the executive summary for today's digest.

Date: %s
Total items: %d
Sections:
%s

Respond in JSON format:
{
  "summary": "<3-4 sentence executive summary>"
}`
)
