package ai

// TripletPrompt instructs the extraction model to emit business fact
// triplets from a document chunk. Format arguments: entity types,
// document name, entity types, relationship types.
const TripletPrompt = `
# Task Context
You are tasked with extracting **structured business facts** from the provided text as subject-predicate-object triplets. Capture every fact explicitly present in the text, without omission or invention.

# Background Data
- **Entity_types:** [%s]
- **Document_name:** [%s]

# Detailed Task Description & Rules
- A triplet links a subject entity to an object entity through a directed, typed relationship.
- Entity names must be written exactly as they appear in the text, without trailing punctuation.
- Pick the subject and object types from the provided entity types: [%s].
- Pick the relationship predicate from this vocabulary when one fits, otherwise coin a short UPPER_SNAKE_CASE verb phrase: [%s].
- Attach numeric attributes where the text provides them (e.g., a risk level between 0.0 and 1.0, a market share percentage, a metric value with its unit).
- Do not emit triplets about the document itself, page numbers, or formatting.

# Examples
Text: "TechCorp competes with Innovex in the cloud services market."
Triplets:
- (TechCorp, COMPETES_WITH, Cloud Services Market)
- (Innovex, COMPETES_WITH, Cloud Services Market)

Text: "Supply chain disruption remains an operational risk for TechCorp, rated at 0.45."
Triplet:
- (TechCorp, HAS_RISK, Supply Chain Disruption) with attributes {type: "operational", level: 0.45}

# Output Formatting
Return a JSON object matching the provided schema. Emit an empty triplet list when the text contains no business facts.
`

// RiskPrompt asks the reasoning model for category risk scores given a
// textual summary of the knowledge graph. Format argument: graph summary.
const RiskPrompt = `
# Task Context
You are a business risk analyst. Assess the risk exposure of the focus entity from the knowledge graph summary below.

# Background Data
%s

# Detailed Task Description & Rules
- Score four categories between 0.0 (no risk) and 1.0 (extreme risk):
  1. financial - revenue, profit, cash flow, debt exposure
  2. operational - processes, staffing, equipment, supply chain
  3. market - competition, demand shifts, market trends
  4. overall - a weighted judgement across all factors
- The reasoning must reference the concrete entities and relationships that drove each score.
- Base the scores only on the summary. Do not assume facts that are not listed.

# Output Formatting
Return a JSON object matching the provided schema with the four scores and a reasoning string.
`

// StrategyPrompt asks the reasoning model for strategy recommendations.
// Format arguments: entity name, risk tolerance, priorities, entity info,
// risk info, insight info, opportunity info.
const StrategyPrompt = `
# Task Context
You are an expert business strategist producing actionable recommendations for %s.

# Background Data
- Risk tolerance of the client: %s
- Priority focus areas, in order: [%s]

Entity Information:
%s

Risk Assessment:
%s

Key Insights:
%s

Strategic Opportunities:
%s

# Detailed Task Description & Rules
- Produce exactly 3 recommendations, ordered by priority.
- Each recommendation needs: a specific action title (10 words max), a rationale grounded in the data above (2-3 sentences that name the risk or insight motivating it), 2-3 expected benefits, 3-5 concrete implementation steps, 2-3 measurable KPIs, a timeline bucket (short|medium|long), and a priority (high|medium|low).
- Titles must be distinct from each other.
- The first recommendations must address the priority focus areas; mention the focus area in the rationale.
- With a high risk tolerance favor aggressive growth moves; with a low risk tolerance favor defensive, stabilizing moves.

# Output Formatting
Return a JSON object matching the provided schema. No commentary outside the JSON.
`

// StrategyRepromptSuffix is appended on the second attempt after a
// schema-violating response.
const StrategyRepromptSuffix = `

IMPORTANT: the previous response could not be parsed. Return ONLY the JSON object, with every field present, timeline restricted to short|medium|long and priority restricted to high|medium|low.`

// SummaryPrompt asks the model for an executive summary of an assembled
// report. Format arguments: entity name, report digest.
const SummaryPrompt = `
# Task Context
You are writing the executive summary of a strategy report for %s.

# Background Data
%s

# Detailed Task Description & Rules
- Write 3-5 sentences of plain prose.
- State the number of recommendations, the risk picture, and which recommendations need immediate attention.
- Do not invent figures that are not in the background data.

# Output Formatting
Return only the summary text, no headings or markup.
`

// ChartPrompt instructs the vision model to describe business charts and
// images so the content can be fed to triplet extraction.
const ChartPrompt = `You are analyzing an image from a business document. Describe its content precisely: if it is a chart, name the chart type, the axes, every series with its values and trend; if it is a table, reproduce it row by row; otherwise describe the depicted entities and any visible text. State only what is visible.`
