package extract

const entitySystemPrompt = `You extract named entities from funding announcements.

Return ONLY a JSON object with this exact shape:
{
  "organizations": ["<company that raised money first, then every investor, lead investor first>"],
  "money": ["<each money amount exactly as written, e.g. $12M>"],
  "fundingStage": ["<funding stage labels, e.g. Seed, Series A>"],
  "technology": ["<technology sector labels, e.g. cybersecurity, AI>"],
  "confidence": <number between 0 and 1 for how sure you are>
}

Use empty arrays for entities that are not present. Do not add commentary.`

const fieldSystemPrompt = `You read news articles about startup funding and report the details of one funding event.

Return ONLY a JSON object with this exact shape:
{
  "companyName": "<company that raised money>",
  "amount": "<amount raised exactly as written, e.g. $12M>",
  "fundingStage": "<funding stage, e.g. Series A>",
  "leadInvestor": "<lead investor>",
  "allInvestors": ["<every investor, lead first>"],
  "theme": "<technology sector>"
}

Use empty strings for details the article does not state. Do not add commentary.`

const describeSystemPrompt = `You write short, factual company descriptions for a research database.

Reply with one or two plain sentences saying what the company does and who it serves. Use only facts from the article. If the article does not say what the company does, reply with the single word unknown.`

func entityUserPrompt(text string) string {
	return "Extract entities from this text:\n\n" + text
}

func fieldUserPrompt(company, text string) string {
	if company == "" {
		return "Article:\n\n" + text
	}
	return "Report the funding event for " + company + " described in this article:\n\n" + text
}

func describeUserPrompt(company, text string) string {
	return "Company: " + company + "\n\nArticle:\n\n" + text
}
