package llm

import (
	"fmt"
	"strings"

	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
)

// System prompts for each generation task.
const (
	systemClassification = "You are a web page classifier. Respond with exactly one word."

	systemFactExtraction = "You are a precise fact extractor. Extract key facts from the provided text " +
		"as a bulleted list. Do not summarize, interpret, or editorialize. Preserve concrete details: " +
		"commands, versions, file paths, configuration values, and step ordering."

	systemSectionSummary = "You are a technical documentation summarizer. Write clear, accurate summaries " +
		"that preserve technical details a reader would need."

	systemPageSynthesis = "You are a technical writer creating page overviews. Be concise and well organized."

	systemAnswer = "You are a documentation assistant. Answer questions using ONLY the provided context. " +
		"If the context does not contain the answer, say so plainly."
)

// Generation parameters per task. Classification is near-deterministic;
// summaries allow moderate variation.
var (
	ParamsClassification = interfaces.GenerationRequest{System: systemClassification, MaxTokens: 20, Temperature: 0.1}
	ParamsFactExtraction = interfaces.GenerationRequest{System: systemFactExtraction, MaxTokens: 300, Temperature: 0.3}
	ParamsSectionSummary = interfaces.GenerationRequest{System: systemSectionSummary, MaxTokens: 512, Temperature: 0.5}
	ParamsSynthesis      = interfaces.GenerationRequest{System: systemPageSynthesis, MaxTokens: 800, Temperature: 0.5}
	ParamsAnswer         = interfaces.GenerationRequest{System: systemAnswer, MaxTokens: 512, Temperature: 0.3}
)

// pageTypeInstructions adjusts summary emphasis per page type.
var pageTypeInstructions = map[models.PageType]string{
	models.PageTypeDocs:    "Focus on setup steps, prerequisites, and configuration details.",
	models.PageTypeAPI:     "Focus on endpoints, parameters, request/response shapes, and error codes.",
	models.PageTypeBlog:    "Focus on the main argument, findings, and any practical takeaways.",
	models.PageTypeReadme:  "Focus on what the project does, how to install it, and how to use it.",
	models.PageTypeUnknown: "Focus on the most important information a reader would need.",
}

// classificationSampleChars bounds how much page content the classifier sees.
const classificationSampleChars = 1000

// ClassificationRequest builds the page type classification call.
func ClassificationRequest(title, content string) interfaces.GenerationRequest {
	sample := content
	if len(sample) > classificationSampleChars {
		sample = sample[:classificationSampleChars]
	}

	req := ParamsClassification
	req.Prompt = fmt.Sprintf(
		"Classify this web page into exactly one of: docs, blog, api, readme, unknown.\n\n"+
			"Title: %s\n\nContent sample:\n%s\n\nAnswer with one word.",
		title, sample)
	return req
}

// FactExtractionRequest builds the per-chunk fact extraction call.
func FactExtractionRequest(heading, chunkText string) interfaces.GenerationRequest {
	req := ParamsFactExtraction
	req.Prompt = fmt.Sprintf(
		"Extract the key facts from this excerpt of the section %q as a bullet list. "+
			"Do not summarize; list concrete facts, commands, and steps in order.\n\n%s",
		heading, chunkText)
	return req
}

// SectionSummaryRequest builds the direct small-section summary call.
func SectionSummaryRequest(pageType models.PageType, heading, content string) interfaces.GenerationRequest {
	req := ParamsSectionSummary
	req.Prompt = fmt.Sprintf(
		"Summarize the section %q from a %s page in 2-4 paragraphs. %s\n\n%s",
		heading, pageType, instructionsFor(pageType), content)
	return req
}

// SummaryFromFactsRequest builds the large-section summary call, working
// from extracted facts rather than raw content.
func SummaryFromFactsRequest(pageType models.PageType, heading, facts string) interfaces.GenerationRequest {
	req := ParamsSectionSummary
	req.Prompt = fmt.Sprintf(
		"Write a 2-4 paragraph summary of the section %q from a %s page based only on these "+
			"extracted facts, keeping their original order. %s\n\nFacts:\n%s",
		heading, pageType, instructionsFor(pageType), facts)
	return req
}

// SynthesisRequest builds the page-level synthesis call from the ordered
// section summaries.
func SynthesisRequest(pageType models.PageType, title string, summaries []models.SectionSummary) interfaces.GenerationRequest {
	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "## %s\n%s\n\n", s.Heading, s.Summary)
	}

	req := ParamsSynthesis
	req.Prompt = fmt.Sprintf(
		"Create an overview of the page %q (a %s page) from its section summaries. "+
			"Start with a TL;DR of up to 5 bullets, then a short outline of what each section covers. %s\n\n"+
			"Section summaries:\n\n%s",
		title, pageType, instructionsFor(pageType), b.String())
	return req
}

// AnswerRequest builds the grounded question answering call.
func AnswerRequest(contextText, question string) interfaces.GenerationRequest {
	req := ParamsAnswer
	req.Prompt = fmt.Sprintf(
		"Answer the question using ONLY the context below. If the context does not contain "+
			"the answer, say you don't know.\n\nContext:\n%s\n\nQuestion: %s",
		contextText, question)
	return req
}

func instructionsFor(pageType models.PageType) string {
	if instr, ok := pageTypeInstructions[pageType]; ok {
		return instr
	}
	return pageTypeInstructions[models.PageTypeUnknown]
}
