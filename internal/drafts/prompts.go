package drafts

import (
	"fmt"
	"strings"

	"cold-outreach-go/internal/model"
)

// buildBriefPrompt asks for a short campaign angle shared across all drafts,
// so per-lead prompts stay consistent in tone and offer.
func buildBriefPrompt(campaign *model.Campaign, portfolio []model.PortfolioExample, extraContext string) string {
	var sb strings.Builder

	sb.WriteString("You are writing a cold outreach campaign for a freelance professional.\n\n")
	fmt.Fprintf(&sb, "Campaign: %s\n", campaign.Name)
	if campaign.Niche != "" {
		fmt.Fprintf(&sb, "Target niche: %s\n", campaign.Niche)
	}
	if extraContext != "" {
		fmt.Fprintf(&sb, "About the sender: %s\n", extraContext)
	}
	writePortfolio(&sb, portfolio)

	sb.WriteString("\nWrite a short brief (3-4 sentences) describing the angle, tone and value ")
	sb.WriteString("proposition this campaign should use. Respond with JSON only:\n")
	sb.WriteString(`{"brief": "..."}`)
	return sb.String()
}

// buildDraftPrompt asks for one personalized email for one lead.
func buildDraftPrompt(campaign *model.Campaign, template *model.Template, lead model.Lead, brief string, portfolio []model.PortfolioExample, extraContext string) string {
	var sb strings.Builder

	sb.WriteString("Write a personalized cold outreach email.\n\n")
	if brief != "" {
		fmt.Fprintf(&sb, "Campaign brief: %s\n\n", brief)
	}
	if extraContext != "" {
		fmt.Fprintf(&sb, "About the sender: %s\n\n", extraContext)
	}

	sb.WriteString("Lead:\n")
	fmt.Fprintf(&sb, "- Name: %s %s\n", lead.FirstName, lead.LastName)
	if lead.Company != "" {
		fmt.Fprintf(&sb, "- Company: %s\n", lead.Company)
	}
	if lead.Website != "" {
		fmt.Fprintf(&sb, "- Website: %s\n", lead.Website)
	}
	if lead.Niche != "" {
		fmt.Fprintf(&sb, "- Niche: %s\n", lead.Niche)
	}

	if template != nil {
		sb.WriteString("\nUse this template as the structural starting point, but personalize it:\n")
		fmt.Fprintf(&sb, "Subject: %s\n%s\n", template.Subject, template.Body)
	}
	writePortfolio(&sb, portfolio)

	sb.WriteString("\nRules: keep it under 150 words, plain text, no placeholders left in the ")
	sb.WriteString("output, one specific observation about the lead, one clear call to action.\n")
	sb.WriteString("Respond with JSON only:\n")
	sb.WriteString(`{"subject": "...", "body": "...", "personalization_notes": "what you personalized and why"}`)
	return sb.String()
}

func writePortfolio(sb *strings.Builder, portfolio []model.PortfolioExample) {
	if len(portfolio) == 0 {
		return
	}
	sb.WriteString("\nPortfolio examples to reference when relevant:\n")
	for _, ex := range portfolio {
		fmt.Fprintf(sb, "- %s (%s): %s\n", ex.Title, ex.URL, ex.Description)
	}
}
